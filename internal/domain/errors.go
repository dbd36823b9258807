package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrInsufficientStock = errors.New("stock insuficiente")

	// ErrTransient fallo temporal del almacén (conflicto de serialización, deadlock, conexión).
	// Solo se reintenta en operaciones idempotentes o protegidas por clave de idempotencia.
	ErrTransient = errors.New("fallo transitorio del almacén")
	// ErrExternalService la plataforma de e-commerce respondió con error.
	ErrExternalService = errors.New("error del servicio externo")
	// ErrInvalidSignature firma HMAC del webhook ausente o incorrecta.
	ErrInvalidSignature = errors.New("firma de webhook inválida")
	// ErrImportStalled la exportación masiva no terminó dentro del número máximo de consultas.
	ErrImportStalled = errors.New("importación estancada")
)
