package paperless

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// StepUser is the id of the only setup step.
const StepUser = "user"

// Form error tags reported under FlowResult.Errors["base"].
const (
	ErrorCannotConnect = "cannot_connect"
	ErrorInvalidAuth   = "invalid_auth"
	ErrorUnknown       = "unknown"
)

// Abort reasons.
const (
	AbortAlreadyConfigured = "already_configured"
	AbortFlowFinished      = "flow_finished"
)

// DefaultPort is the form default for the Paperless-NG port.
const DefaultPort = "8000"

// FlowState is the state of a [ConfigFlow].
type FlowState string

const (
	FlowAwaitingInput FlowState = "awaiting_input"
	FlowTerminal      FlowState = "terminal"
)

// FlowResultType says what the caller should do with a [FlowResult].
type FlowResultType string

const (
	// ResultForm asks the caller to (re)display the form.
	ResultForm FlowResultType = "form"

	// ResultCreateEntry reports that a new entry was persisted.
	ResultCreateEntry FlowResultType = "create_entry"

	// ResultAbort reports that the flow ended without creating an entry.
	ResultAbort FlowResultType = "abort"
)

// FormField describes one input of the setup form.
type FormField struct {
	Name     string
	Type     string // "string" or "bool"
	Required bool
	Default  any
}

// UserFormSchema returns the setup form: host, port (default "8000"),
// ssl (default false), username, password and an optional to-do tag.
func UserFormSchema() []FormField {
	return []FormField{
		{Name: "host", Type: "string", Required: true},
		{Name: "port", Type: "string", Required: true, Default: DefaultPort},
		{Name: "ssl", Type: "bool", Required: true, Default: false},
		{Name: "username", Type: "string", Required: true},
		{Name: "password", Type: "string", Required: true},
		{Name: "todo_tag", Type: "string", Required: false},
	}
}

// EntryData is the persisted part of a config entry.
type EntryData struct {
	Host     string
	Port     string
	SSL      bool
	APIToken string
	TodoTag  string
}

// ConfigEntry is a completed setup, persisted by an [EntryRegistry].
type ConfigEntry struct {
	EntryID  string
	UniqueID string
	Title    string
	Data     EntryData
}

// Session returns the session described by the entry.
func (e ConfigEntry) Session() Session {
	return Session{
		Host:   e.Data.Host,
		Port:   e.Data.Port,
		UseTLS: e.Data.SSL,
		Token:  e.Data.APIToken,
	}
}

// EntryRegistry persists config entries.
type EntryRegistry interface {
	// HasUniqueID reports whether an entry with the unique id exists.
	HasUniqueID(uniqueID string) (bool, error)

	// AddEntry persists a new entry.
	AddEntry(entry ConfigEntry) error
}

// FlowResult is the outcome of one [ConfigFlow.Step].
type FlowResult struct {
	Type   FlowResultType
	StepID string

	// Schema is set for ResultForm.
	Schema []FormField

	// Errors is set for ResultForm after a failed submission, keyed "base".
	Errors map[string]string

	// Title and Entry are set for ResultCreateEntry.
	Title string
	Entry *ConfigEntry

	// Reason is set for ResultAbort.
	Reason string
}

// ConfigFlow is the setup wizard. It starts in [FlowAwaitingInput] and ends
// in [FlowTerminal] once an entry is created or the flow is aborted.
type ConfigFlow struct {
	auth     *Authenticator
	registry EntryRegistry
	logger   *slog.Logger

	mu    sync.Mutex
	state FlowState
}

// NewConfigFlow creates a flow that validates through auth and persists to registry.
func NewConfigFlow(auth *Authenticator, registry EntryRegistry, logger *slog.Logger) *ConfigFlow {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfigFlow{
		auth:     auth,
		registry: registry,
		logger:   logger,
		state:    FlowAwaitingInput,
	}
}

// State returns the current flow state.
func (f *ConfigFlow) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Step advances the flow. A nil input shows the empty form. A submitted
// input is validated; failures redisplay the form with an error tag,
// success persists a new entry unless its token is already configured.
func (f *ConfigFlow) Step(ctx context.Context, input *UserInput) FlowResult {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == FlowTerminal {
		return FlowResult{Type: ResultAbort, StepID: StepUser, Reason: AbortFlowFinished}
	}

	if input == nil {
		return showForm(nil)
	}

	info, err := ValidateInput(ctx, f.auth, *input)
	if err != nil {
		return showForm(map[string]string{"base": f.errorTag(err)})
	}

	exists, err := f.registry.HasUniqueID(info.Token)
	if err != nil {
		f.logger.Error("unexpected exception", "step", StepUser, "error", err)
		return showForm(map[string]string{"base": ErrorUnknown})
	}
	if exists {
		f.state = FlowTerminal
		return FlowResult{Type: ResultAbort, StepID: StepUser, Reason: AbortAlreadyConfigured}
	}

	entry := ConfigEntry{
		EntryID:  uuid.NewString(),
		UniqueID: info.Token,
		Title:    info.Title,
		Data: EntryData{
			Host:     input.Host,
			Port:     input.Port,
			SSL:      input.SSL,
			APIToken: info.Token,
			TodoTag:  info.TodoTag,
		},
	}
	if err := f.registry.AddEntry(entry); err != nil {
		f.logger.Error("unexpected exception", "step", StepUser, "error", fmt.Errorf("persist entry: %w", err))
		return showForm(map[string]string{"base": ErrorUnknown})
	}

	f.state = FlowTerminal
	return FlowResult{
		Type:   ResultCreateEntry,
		StepID: StepUser,
		Title:  entry.Title,
		Entry:  &entry,
	}
}

// errorTag maps a validation error to its form error tag.
func (f *ConfigFlow) errorTag(err error) string {
	switch {
	case errors.Is(err, ErrCannotConnect):
		return ErrorCannotConnect
	case errors.Is(err, ErrInvalidAuth):
		return ErrorInvalidAuth
	default:
		f.logger.Error("unexpected exception", "step", StepUser, "error", err)
		return ErrorUnknown
	}
}

func showForm(errs map[string]string) FlowResult {
	return FlowResult{
		Type:   ResultForm,
		StepID: StepUser,
		Schema: UserFormSchema(),
		Errors: errs,
	}
}
