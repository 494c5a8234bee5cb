// Package event defines the structured events the daemon records: sensor
// readings and failures, control commands, network conditions and system
// lifecycle. A Recorder fans each event out to the log and any registered
// sinks (journal, upstream queue); sinks are best-effort and never block
// or fail the caller.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Component classifies the subsystem an event belongs to.
type Component string

const (
	ComponentSensor  Component = "sensor"
	ComponentControl Component = "control"
	ComponentNetwork Component = "network"
	ComponentSystem  Component = "system"
)

// Level is the severity of an event.
type Level string

const (
	LevelInfo     Level = "INFO"
	LevelWarning  Level = "WARNING"
	LevelError    Level = "ERROR"
	LevelCritical Level = "CRITICAL"
)

// Event is one structured occurrence worth journaling.
type Event struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Component Component      `json:"component"`
	Entity    string         `json:"entity"`
	Level     Level          `json:"level"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// New builds an event with a fresh id and the current time.
func New(component Component, entity string, level Level, message string, fields map[string]any) Event {
	return Event{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Component: component,
		Entity:    entity,
		Level:     level,
		Message:   message,
		Fields:    fields,
	}
}
