package services

import (
	"errors"
	"fmt"

	"github.com/Dosada05/worldcup-predictor/brackets"
)

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed = errors.New("validation failed")

	// Предсказания
	ErrSubmissionNotFound = fmt.Errorf("%w: submission", ErrNotFound)
	ErrAlreadySubmitted   = fmt.Errorf("%w: bracket has already been submitted", brackets.ErrSubmissionLocked)
	ErrDeadlinePassed     = fmt.Errorf("%w: submission deadline has passed", brackets.ErrSubmissionLocked)

	// Ошибки аутентификации и авторизации
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrForbiddenOperation   = errors.New("operation not allowed for the current user")
)
