package stream

import (
	"errors"
	"fmt"

	"github.com/zhouzirui/mockview/backend/internal/errs"
)

var (
	errStreamingUnsupported = errors.New("streaming unsupported")
	errEnded                = fmt.Errorf("session has already ended: %w", errs.ErrInvalidState)
)
