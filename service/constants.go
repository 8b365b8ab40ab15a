package service

const (
	MaxContractValue     = 10_000_000_000.0 // 1000 crore
	MaxStagesPerSchedule = 50               // máximo de etapas por cronograma
	MaxProjectNameLength = 200

	// Permiso requerido para modificar el cronograma de un proyecto
	PermissionEditSchedule = "project.edit_payment_schedule"

	calculationCachePrefix = "schedule:calc:"
)
