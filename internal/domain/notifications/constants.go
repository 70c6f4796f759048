package notifications

const (
	TypePayslipPaid     = "payslip_paid"
	TypeOvertimeDecided = "overtime_decided"
)
