package service

import (
	"github.com/smartcity/flowsense/internal/domain"
)

// EventSink is re-exported from domain for convenience
type EventSink = domain.EventSink
