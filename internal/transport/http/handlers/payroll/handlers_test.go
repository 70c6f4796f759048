package payrollhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrpay/internal/domain/auth"
	"hrpay/internal/domain/payroll"
	"hrpay/internal/platform/jobs"
	"hrpay/internal/platform/metrics"
	"hrpay/internal/transport/http/api"
	"hrpay/internal/transport/http/middleware"
)

type fakeService struct {
	mu         sync.Mutex
	calc       *payroll.Calculator
	payslips   map[string]payroll.Payslip
	history    []payroll.SalaryStructureVersion
	lastFilter payroll.PayslipFilter
	savedInput payroll.StoredInputs
	paidCalls  int
	runErr     error
	calcErr    error
	recordErr  error
	userToEmp  map[string]string
}

func newFakeService() *fakeService {
	return &fakeService{
		calc:      payroll.MustDefaultCalculator(),
		payslips:  map[string]payroll.Payslip{},
		userToEmp: map[string]string{},
	}
}

func (f *fakeService) Preview(structure payroll.SalaryStructure, inputs payroll.PeriodInputs) (payroll.PayslipResult, error) {
	return f.calc.Calculate(structure, inputs)
}

func (f *fakeService) EstimateWithholding(gross decimal.Decimal) (payroll.WithholdingEstimate, error) {
	return f.calc.EstimateWithholding(gross)
}

func (f *fakeService) RecordSalaryStructure(_ context.Context, _, actorID, employeeID string, structure payroll.SalaryStructure, effectiveFrom time.Time) (payroll.SalaryStructureVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return payroll.SalaryStructureVersion{}, f.recordErr
	}
	for _, v := range f.history {
		if v.EmployeeID == employeeID && v.EffectiveFrom.Equal(effectiveFrom) {
			return payroll.SalaryStructureVersion{}, payroll.ErrDuplicateEffectiveDate
		}
	}
	version := payroll.SalaryStructureVersion{ID: "ss-1", EmployeeID: employeeID, EffectiveFrom: effectiveFrom, CreatedBy: actorID, SalaryStructure: structure}
	f.history = append(f.history, version)
	return version, nil
}

func (f *fakeService) SalaryHistory(_ context.Context, _, employeeID string) ([]payroll.SalaryStructureVersion, error) {
	var out []payroll.SalaryStructureVersion
	for _, v := range f.history {
		if v.EmployeeID == employeeID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeService) StructureAt(_ context.Context, _, employeeID string, at time.Time) (payroll.SalaryStructureVersion, error) {
	var (
		found payroll.SalaryStructureVersion
		ok    bool
	)
	for _, v := range f.history {
		if v.EmployeeID == employeeID && !v.EffectiveFrom.After(at) && (!ok || v.EffectiveFrom.After(found.EffectiveFrom)) {
			found, ok = v, true
		}
	}
	if !ok {
		return payroll.SalaryStructureVersion{}, payroll.ErrSalaryStructureNotFound
	}
	return found, nil
}

func (f *fakeService) SavePeriodInputs(_ context.Context, _ string, inputs payroll.StoredInputs) error {
	f.savedInput = inputs
	return nil
}

func (f *fakeService) CalculatePayslip(_ context.Context, _, employeeID string, period payroll.Period) (payroll.Payslip, error) {
	if f.calcErr != nil {
		return payroll.Payslip{}, f.calcErr
	}
	return payroll.Payslip{ID: "ps-new", EmployeeID: employeeID, PeriodStart: period.Start, PeriodEnd: period.End, Status: payroll.PayslipStatusPending}, nil
}

func (f *fakeService) RunPeriod(_ context.Context, _ string, period payroll.Period) (payroll.RunSummary, error) {
	if f.runErr != nil {
		return payroll.RunSummary{}, f.runErr
	}
	return payroll.RunSummary{
		Period:          period,
		EmployeeCount:   3,
		CalculatedCount: 2,
		Skipped:         []payroll.SkippedEmployee{{EmployeeID: "e3", Reason: "no salary structure"}},
		TotalGross:      decimal.NewFromInt(11000),
		TotalNet:        decimal.NewFromInt(10000),
	}, nil
}

func (f *fakeService) ListPayslips(_ context.Context, _ string, filter payroll.PayslipFilter, _, _ int) ([]payroll.Payslip, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	var out []payroll.Payslip
	for _, p := range f.payslips {
		if filter.EmployeeID == "" || p.EmployeeID == filter.EmployeeID {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

func (f *fakeService) GetPayslip(_ context.Context, _, payslipID string) (payroll.Payslip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payslips[payslipID]
	if !ok {
		return payroll.Payslip{}, payroll.ErrPayslipNotFound
	}
	return p, nil
}

func (f *fakeService) MarkPaid(_ context.Context, _, actorID, payslipID string) (payroll.Payslip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paidCalls++
	p, ok := f.payslips[payslipID]
	if !ok {
		return payroll.Payslip{}, payroll.ErrPayslipNotFound
	}
	if p.Status == payroll.PayslipStatusPaid {
		return payroll.Payslip{}, payroll.ErrPayslipAlreadyPaid
	}
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	p.Status = payroll.PayslipStatusPaid
	p.PaidAt = &now
	p.PaidBy = actorID
	f.payslips[payslipID] = p
	return p, nil
}

func (f *fakeService) EmployeeIDForUser(_ context.Context, _, userID string) (string, error) {
	return f.userToEmp[userID], nil
}

type fakeJobs struct {
	queued map[string]jobs.RunFunc
	err    error
}

func (f *fakeJobs) Enqueue(_ context.Context, _, _ string, run jobs.RunFunc) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.queued == nil {
		f.queued = map[string]jobs.RunFunc{}
	}
	f.queued["run-1"] = run
	return "run-1", nil
}

func (f *fakeJobs) RunNow(ctx context.Context, _, _ string, run jobs.RunFunc) (any, error) {
	return run(ctx)
}

func (f *fakeJobs) Get(_ context.Context, _, runID string) (jobs.Run, error) {
	if runID != "run-1" {
		return jobs.Run{}, jobs.ErrRunNotFound
	}
	return jobs.Run{ID: runID, JobType: payroll.JobPayrollRun, Status: jobs.StatusCompleted}, nil
}

type fakeAudit struct {
	mu      sync.Mutex
	actions []string
}

func (f *fakeAudit) Log(_ context.Context, _, _, action, _, _, _, _ string, _, _ any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeNotifier) NotifyEmployee(_ context.Context, _, employeeID, ntype, _, _, entityID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, ntype+":"+employeeID+":"+entityID)
}

type memoryIdempotency struct {
	mu      sync.Mutex
	entries map[string]struct {
		hash string
		body json.RawMessage
	}
}

func (m *memoryIdempotency) Check(_ context.Context, tenantID, userID, endpoint, key, requestHash string) (json.RawMessage, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[tenantID+userID+endpoint+key]
	if !ok {
		return nil, false, nil
	}
	if entry.hash != requestHash {
		return nil, false, middleware.ErrIdempotencyConflict
	}
	return entry.body, true, nil
}

func (m *memoryIdempotency) Save(_ context.Context, tenantID, userID, endpoint, key, requestHash string, response json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = map[string]struct {
			hash string
			body json.RawMessage
		}{}
	}
	m.entries[tenantID+userID+endpoint+key] = struct {
		hash string
		body json.RawMessage
	}{requestHash, response}
	return nil
}

type fixture struct {
	service     *fakeService
	jobs        *fakeJobs
	audit       *fakeAudit
	metrics     *metrics.Collector
	notifier    *fakeNotifier
	handler     *Handler
	idempotence *memoryIdempotency
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	perms, err := auth.NewDefaultAuthorizer()
	require.NoError(t, err)
	f := &fixture{
		service:     newFakeService(),
		jobs:        &fakeJobs{},
		audit:       &fakeAudit{},
		metrics:     metrics.New(),
		notifier:    &fakeNotifier{},
		idempotence: &memoryIdempotency{},
	}
	f.handler = NewHandler(f.service, f.jobs, f.audit, f.idempotence, f.metrics, perms)
	f.handler.Notify = f.notifier
	return f
}

func (f *fixture) do(t *testing.T, user *auth.UserContext, method, path, body string, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user != nil {
				r = r.WithContext(middleware.WithUser(r.Context(), *user))
			}
			next.ServeHTTP(w, r)
		})
	})
	f.handler.RegisterRoutes(router)

	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *api.Error      `json:"error"`
}

func userWithRole(role string) *auth.UserContext {
	return &auth.UserContext{UserID: "user-" + role, TenantID: "tenant-1", RoleName: role}
}

func dec(t *testing.T, raw json.RawMessage) decimal.Decimal {
	t.Helper()
	var d decimal.Decimal
	require.NoError(t, json.Unmarshal(raw, &d))
	return d
}

func TestCalculateReturnsPayslipResult(t *testing.T) {
	f := newFixture(t)
	rec, env := f.do(t, userWithRole(auth.RoleAccountant), http.MethodPost, "/payroll/calculate",
		`{"baseSalary":5000,"overtimeHours":10,"payPeriodStart":"2026-01-01","payPeriodEnd":"2026-01-31"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.True(t, decimal.RequireFromString("468.75").Equal(dec(t, out["overtimePay"])))
	assert.True(t, decimal.RequireFromString("5468.75").Equal(dec(t, out["grossPay"])))
	assert.True(t, decimal.NewFromInt(250).Equal(dec(t, out["socialSecurity"])))
	assert.True(t, decimal.Zero.Equal(dec(t, out["taxDeduction"])))
	assert.True(t, decimal.RequireFromString("5218.75").Equal(dec(t, out["netPay"])))
}

func TestCalculateRejectsInvalidPayload(t *testing.T) {
	f := newFixture(t)
	rec, env := f.do(t, userWithRole(auth.RoleHR), http.MethodPost, "/payroll/calculate",
		`{"bonus":-5,"payPeriodStart":"2026-01-31","payPeriodEnd":"2026-01-01"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "validation_error", env.Error.Code)

	fields := map[string]bool{}
	details, ok := env.Error.Details.(map[string]any)
	require.True(t, ok)
	for _, item := range details["fields"].([]any) {
		fields[item.(map[string]any)["field"].(string)] = true
	}
	assert.True(t, fields["baseSalary"])
	assert.True(t, fields["bonus"])
	assert.True(t, fields["payPeriodEnd"])
}

func TestCalculateRejectsUnknownFields(t *testing.T) {
	f := newFixture(t)
	rec, env := f.do(t, userWithRole(auth.RoleHR), http.MethodPost, "/payroll/calculate",
		`{"baseSalary":5000,"salary":1,"payPeriodStart":"2026-01-01","payPeriodEnd":"2026-01-31"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_payload", env.Error.Code)
}

func TestEmployeeCannotCalculate(t *testing.T) {
	f := newFixture(t)
	rec, _ := f.do(t, userWithRole(auth.RoleEmployee), http.MethodPost, "/payroll/calculate", `{}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = f.do(t, nil, http.MethodPost, "/payroll/calculate", `{}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWithholdingEstimate(t *testing.T) {
	f := newFixture(t)
	rec, env := f.do(t, userWithRole(auth.RoleAccountant), http.MethodPost, "/payroll/withholding-estimate", `{"grossPay":"10000"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.True(t, decimal.NewFromInt(620).Equal(dec(t, out["socialSecurity"])))
	assert.True(t, decimal.NewFromInt(145).Equal(dec(t, out["medicare"])))
	assert.True(t, decimal.NewFromInt(765).Equal(dec(t, out["total"])))
}

func TestCreateSalaryStructureAndDuplicate(t *testing.T) {
	f := newFixture(t)
	body := `{"baseSalary":"6000","housingAllowance":"500","effectiveFrom":"2026-01-01"}`

	rec, env := f.do(t, userWithRole(auth.RoleHR), http.MethodPost, "/payroll/employees/emp-1/salary-structures", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var version payroll.SalaryStructureVersion
	require.NoError(t, json.Unmarshal(env.Data, &version))
	assert.Equal(t, "emp-1", version.EmployeeID)
	assert.True(t, decimal.NewFromInt(6000).Equal(version.BaseSalary))
	assert.Equal(t, []string{"payroll.salary_structure.create"}, f.audit.actions)

	rec, env = f.do(t, userWithRole(auth.RoleHR), http.MethodPost, "/payroll/employees/emp-1/salary-structures", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "duplicate_effective_date", env.Error.Code)

	rec, env = f.do(t, userWithRole(auth.RoleAccountant), http.MethodGet, "/payroll/employees/emp-1/salary-structures", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history []payroll.SalaryStructureVersion
	require.NoError(t, json.Unmarshal(env.Data, &history))
	assert.Len(t, history, 1)

	rec, _ = f.do(t, userWithRole(auth.RoleAccountant), http.MethodPost, "/payroll/employees/emp-1/salary-structures", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateSalaryStructureForUnknownEmployee(t *testing.T) {
	f := newFixture(t)
	f.service.recordErr = payroll.ErrEmployeeNotFound

	rec, env := f.do(t, userWithRole(auth.RoleHR), http.MethodPost, "/payroll/employees/emp-9/salary-structures",
		`{"baseSalary":"6000","effectiveFrom":"2026-01-01"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "employee_not_found", env.Error.Code)
	assert.Empty(t, f.audit.actions)
}

func TestEffectiveSalaryStructure(t *testing.T) {
	f := newFixture(t)
	f.service.history = []payroll.SalaryStructureVersion{
		{ID: "ss-1", EmployeeID: "emp-1", EffectiveFrom: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), SalaryStructure: payroll.SalaryStructure{BaseSalary: decimal.NewFromInt(5000)}},
		{ID: "ss-2", EmployeeID: "emp-1", EffectiveFrom: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), SalaryStructure: payroll.SalaryStructure{BaseSalary: decimal.NewFromInt(5500)}},
	}
	hr := userWithRole(auth.RoleHR)

	rec, env := f.do(t, hr, http.MethodGet, "/payroll/employees/emp-1/salary-structures/effective?date=2026-02-28", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var version payroll.SalaryStructureVersion
	require.NoError(t, json.Unmarshal(env.Data, &version))
	assert.Equal(t, "ss-1", version.ID)

	rec, env = f.do(t, hr, http.MethodGet, "/payroll/employees/emp-1/salary-structures/effective?date=2025-12-31", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "salary_structure_missing", env.Error.Code)

	rec, env = f.do(t, hr, http.MethodGet, "/payroll/employees/emp-1/salary-structures/effective?date=28-02-2026", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", env.Error.Code)
}

func TestSaveInputs(t *testing.T) {
	f := newFixture(t)
	rec, _ := f.do(t, userWithRole(auth.RoleHR), http.MethodPut, "/payroll/employees/emp-1/inputs",
		`{"periodStart":"2026-01-01","periodEnd":"2026-01-31","bonus":"250","overtimePay":"100"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "emp-1", f.service.savedInput.EmployeeID)
	assert.Equal(t, "user-hr", f.service.savedInput.UpdatedBy)
	assert.True(t, decimal.NewFromInt(250).Equal(f.service.savedInput.Bonus))
	require.NotNil(t, f.service.savedInput.OvertimePay)
	assert.True(t, decimal.NewFromInt(100).Equal(*f.service.savedInput.OvertimePay))
}

func TestCalculatePayslipWithoutStructure(t *testing.T) {
	f := newFixture(t)
	f.service.calcErr = payroll.ErrSalaryStructureNotFound
	rec, env := f.do(t, userWithRole(auth.RoleAccountant), http.MethodPost, "/payroll/employees/emp-1/payslips",
		`{"periodStart":"2026-01-01","periodEnd":"2026-01-31"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "salary_structure_missing", env.Error.Code)

	f.service.calcErr = payroll.ErrPayslipAlreadyPaid
	rec, env = f.do(t, userWithRole(auth.RoleAccountant), http.MethodPost, "/payroll/employees/emp-1/payslips",
		`{"periodStart":"2026-01-01","periodEnd":"2026-01-31"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "payslip_paid", env.Error.Code)
}

func TestRunPayrollSync(t *testing.T) {
	f := newFixture(t)
	rec, env := f.do(t, userWithRole(auth.RoleAccountant), http.MethodPost, "/payroll/runs",
		`{"periodStart":"2026-01-01","periodEnd":"2026-01-31"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var summary payroll.RunSummary
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, 2, summary.CalculatedCount)
	assert.Len(t, summary.Skipped, 1)
	snapshot := f.metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot["payrollRunsTotal"])
	assert.Equal(t, uint64(2), snapshot["payslipsComputedTotal"])
	assert.Equal(t, []string{"payroll.run"}, f.audit.actions)
}

func TestRunPayrollAsyncQueues(t *testing.T) {
	f := newFixture(t)
	rec, env := f.do(t, userWithRole(auth.RoleAccountant), http.MethodPost, "/payroll/runs?async=true",
		`{"periodStart":"2026-01-01","periodEnd":"2026-01-31"}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var accepted runAccepted
	require.NoError(t, json.Unmarshal(env.Data, &accepted))
	assert.Equal(t, "run-1", accepted.RunID)
	assert.Equal(t, jobs.StatusQueued, accepted.Status)
	require.Contains(t, f.jobs.queued, "run-1")

	result, err := f.jobs.queued["run-1"](context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.(payroll.RunSummary).CalculatedCount)

	rec, _ = f.do(t, userWithRole(auth.RoleAccountant), http.MethodGet, "/payroll/runs/run-1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = f.do(t, userWithRole(auth.RoleAccountant), http.MethodGet, "/payroll/runs/run-9", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunPayrollQueueFull(t *testing.T) {
	f := newFixture(t)
	f.jobs.err = jobs.ErrQueueFull
	rec, env := f.do(t, userWithRole(auth.RoleAccountant), http.MethodPost, "/payroll/runs?async=true",
		`{"periodStart":"2026-01-01","periodEnd":"2026-01-31"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "queue_full", env.Error.Code)
}

func TestHRCannotRunPayroll(t *testing.T) {
	f := newFixture(t)
	rec, _ := f.do(t, userWithRole(auth.RoleHR), http.MethodPost, "/payroll/runs",
		`{"periodStart":"2026-01-01","periodEnd":"2026-01-31"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func seedPayslips(f *fixture) {
	f.service.payslips["ps-1"] = payroll.Payslip{ID: "ps-1", EmployeeID: "emp-1", Status: payroll.PayslipStatusPending}
	f.service.payslips["ps-2"] = payroll.Payslip{ID: "ps-2", EmployeeID: "emp-2", Status: payroll.PayslipStatusPending}
}

func TestEmployeeListsOnlyOwnPayslips(t *testing.T) {
	f := newFixture(t)
	seedPayslips(f)
	employee := userWithRole(auth.RoleEmployee)
	employee.EmployeeID = "emp-1"

	rec, env := f.do(t, employee, http.MethodGet, "/payroll/payslips?employeeId=emp-2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Items []payroll.Payslip `json:"items"`
		Total int               `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Empty(t, page.Items)

	rec, env = f.do(t, employee, http.MethodGet, "/payroll/payslips", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "ps-1", page.Items[0].ID)
	assert.Equal(t, "emp-1", f.service.lastFilter.EmployeeID)
}

func TestEmployeeResolvedFromUserAccount(t *testing.T) {
	f := newFixture(t)
	seedPayslips(f)
	employee := userWithRole(auth.RoleEmployee)
	f.service.userToEmp[employee.UserID] = "emp-2"

	rec, _ := f.do(t, employee, http.MethodGet, "/payroll/payslips/ps-2", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = f.do(t, employee, http.MethodGet, "/payroll/payslips/ps-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAccountantSeesAllPayslips(t *testing.T) {
	f := newFixture(t)
	seedPayslips(f)
	rec, env := f.do(t, userWithRole(auth.RoleAccountant), http.MethodGet, "/payroll/payslips?status=pending&limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Items []payroll.Payslip `json:"items"`
		Total int               `json:"total"`
		Limit int               `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 10, page.Limit)

	rec, _ = f.do(t, userWithRole(auth.RoleAccountant), http.MethodGet, "/payroll/payslips?status=void", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPayIsIdempotentAndFinal(t *testing.T) {
	f := newFixture(t)
	seedPayslips(f)
	accountant := userWithRole(auth.RoleAccountant)

	rec, env := f.do(t, accountant, http.MethodPost, "/payroll/payslips/ps-1/pay", "", "Idempotency-Key", "pay-ps-1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var slip payroll.Payslip
	require.NoError(t, json.Unmarshal(env.Data, &slip))
	assert.Equal(t, payroll.PayslipStatusPaid, slip.Status)

	rec, env = f.do(t, accountant, http.MethodPost, "/payroll/payslips/ps-1/pay", "", "Idempotency-Key", "pay-ps-1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &slip))
	assert.Equal(t, payroll.PayslipStatusPaid, slip.Status)
	assert.Equal(t, 1, f.service.paidCalls)

	rec, env = f.do(t, accountant, http.MethodPost, "/payroll/payslips/ps-1/pay", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "payslip_paid", env.Error.Code)

	rec, _ = f.do(t, accountant, http.MethodPost, "/payroll/payslips/missing/pay", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = f.do(t, userWithRole(auth.RoleHR), http.MethodPost, "/payroll/payslips/ps-2/pay", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	snapshot := f.metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot["payslipsPaidTotal"])
	assert.Equal(t, []string{"payslip_paid:emp-1:ps-1"}, f.notifier.sent)
}

func TestPayRejectsMalformedIdempotencyKey(t *testing.T) {
	f := newFixture(t)
	seedPayslips(f)

	rec, env := f.do(t, userWithRole(auth.RoleAccountant), http.MethodPost, "/payroll/payslips/ps-1/pay", "", "Idempotency-Key", "has spaces in it")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_idempotency_key", env.Error.Code)
	assert.Equal(t, 0, f.service.paidCalls)
}
