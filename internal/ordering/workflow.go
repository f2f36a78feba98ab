package ordering

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"qrmenu/internal/cart"
	"qrmenu/internal/model"
	"qrmenu/internal/pricing"
)

// State is the position of a workflow in its submission cycle.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateConfirmed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateConfirmed:
		return "confirmed"
	}
	return "unknown"
}

// Exit is how the customer leaves the confirmation.
type Exit int

const (
	// ExitClearAndClose empties the cart.
	ExitClearAndClose Exit = iota
	// ExitCloseOnly keeps the cart for another order.
	ExitCloseOnly
)

var (
	ErrSubmissionInFlight = errors.New("an order is already being submitted")
	ErrNotIdle            = errors.New("the previous order must be closed first")
	ErrNotConfirmed       = errors.New("no confirmed order to close")
	ErrEmptyCart          = errors.New("the cart is empty")
	ErrChannelUnavailable = errors.New("this ordering channel is not available")
	ErrSubmissionFailed   = errors.New("the order could not be sent, please try again")
)

// ValidationError reports customer input that blocks a submission.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Cart is the part of a cart store the workflow reads and clears. The
// pending submission survives the process so a retry from a new workflow
// reuses the idempotency key of the attempt it repeats.
type Cart interface {
	Scope() cart.Scope
	Lines() []cart.Line
	Totals() pricing.Totals
	Clear(ctx context.Context) error
	PendingSubmission(ctx context.Context) (*cart.PendingSubmission, error)
	SetPendingSubmission(ctx context.Context, p cart.PendingSubmission) error
	ClearPendingSubmission(ctx context.Context) error
}

// Submitter records orders with the backend.
type Submitter interface {
	SubmitOrder(ctx context.Context, req *model.CreateOrderRequest, idempotencyKey string) (*model.Order, error)
	SubmitTableOrder(ctx context.Context, req *model.CreateTableOrderRequest, idempotencyKey string) (*model.Order, error)
}

// HandOff opens a WhatsApp chat URL for the customer.
type HandOff interface {
	Open(ctx context.Context, url string) error
}

// HandOffFunc adapts a function to HandOff.
type HandOffFunc func(ctx context.Context, url string) error

// Open calls f.
func (f HandOffFunc) Open(ctx context.Context, url string) error {
	return f(ctx, url)
}

// Customer identifies who placed a website order.
type Customer struct {
	Name  string
	Phone string
}

// Result describes a confirmed order.
type Result struct {
	Channel    Channel
	Order      *model.Order
	Message    string // WhatsApp only
	HandOffURL string // WhatsApp only
}

// Workflow drives one cart through submission and confirmation.
type Workflow struct {
	cart      Cart
	tenant    Tenant
	submitter Submitter
	handOff   HandOff
	logger    zerolog.Logger
	newKey    func() string

	mu          sync.Mutex
	state       State
	lastErr     error
	result      *Result
	pendingKey  string
	pendingHash string
}

// NewWorkflow creates a workflow in the Idle state. handOff may be nil when
// the tenant has no WhatsApp channel.
func NewWorkflow(c Cart, tenant Tenant, submitter Submitter, handOff HandOff, logger zerolog.Logger) *Workflow {
	return &Workflow{
		cart:      c,
		tenant:    tenant,
		submitter: submitter,
		handOff:   handOff,
		logger:    logger.With().Str("component", "order-workflow").Str("tenant", tenant.Username).Logger(),
		newKey:    uuid.NewString,
	}
}

// State returns the current state.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// LastError returns the error of the last failed submission, cleared on success.
func (w *Workflow) LastError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

// Result returns the confirmed order while in the Confirmed state.
func (w *Workflow) Result() *Result {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.result
}

// Channels lists the channels the customer may pick.
func (w *Workflow) Channels() []Channel {
	return AvailableChannels(w.tenant, w.cart.Scope())
}

// ContactMessage is the tenant's fallback text, when ShowsContactMessage
// allows it for the cart's scope.
func (w *Workflow) ContactMessage() (string, bool) {
	if !ShowsContactMessage(w.tenant, w.cart.Scope()) {
		return "", false
	}
	return w.tenant.ContactMessage, true
}

// Submit sends the current cart through channel. Validation failures and
// backend failures both leave the workflow Idle with the cart untouched.
func (w *Workflow) Submit(ctx context.Context, channel Channel, customer Customer) (*Result, error) {
	w.mu.Lock()
	switch w.state {
	case StateSubmitting:
		w.mu.Unlock()
		return nil, ErrSubmissionInFlight
	case StateConfirmed:
		w.mu.Unlock()
		return nil, ErrNotIdle
	}

	attempt, err := w.prepare(channel, customer)
	if err != nil {
		w.lastErr = err
		w.mu.Unlock()
		return nil, err
	}

	// Retrying the same cart reuses its key so a request that did reach the
	// server is not recorded twice.
	w.loadPending(ctx)
	if attempt.hash != w.pendingHash || w.pendingKey == "" {
		w.pendingKey = w.newKey()
		w.pendingHash = attempt.hash
		pending := cart.PendingSubmission{Key: w.pendingKey, Fingerprint: w.pendingHash}
		if err := w.cart.SetPendingSubmission(ctx, pending); err != nil {
			w.logger.Warn().Err(err).Msg("failed to persist pending order, a retry from another run will not be deduplicated")
		}
	}
	key := w.pendingKey
	w.state = StateSubmitting
	w.mu.Unlock()

	w.logger.Info().
		Str("channel", string(channel)).
		Int("lines", len(attempt.lines)).
		Str("total", attempt.totals.Price.String()).
		Msg("submitting order")

	order, err := w.send(ctx, channel, attempt, key)

	w.mu.Lock()
	defer w.mu.Unlock()

	if err != nil {
		w.state = StateIdle
		w.lastErr = fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
		w.logger.Warn().Err(err).Str("channel", string(channel)).Msg("order submission failed")
		return nil, w.lastErr
	}

	result := &Result{Channel: channel, Order: order}
	if channel == ChannelWhatsApp {
		result.Message = WhatsAppMessage(attempt.lines, attempt.totals.Price, order.Reference())
		result.HandOffURL = WhatsAppURL(w.tenant.WhatsAppNumber, result.Message)
		if w.handOff != nil {
			if err := w.handOff.Open(ctx, result.HandOffURL); err != nil {
				w.logger.Warn().Err(err).Str("order_id", order.ID.String()).Msg("failed to open WhatsApp chat")
			}
		}
	}

	w.state = StateConfirmed
	w.result = result
	w.lastErr = nil
	w.pendingKey = ""
	w.pendingHash = ""
	if err := w.cart.ClearPendingSubmission(ctx); err != nil {
		w.logger.Warn().Err(err).Msg("failed to clear pending order")
	}

	w.logger.Info().
		Str("channel", string(channel)).
		Str("order_id", order.ID.String()).
		Str("reference", order.Reference()).
		Msg("order confirmed")

	return result, nil
}

// Close leaves the Confirmed state. ExitClearAndClose empties the cart first;
// if that fails the workflow stays Confirmed so the exit can be retried.
func (w *Workflow) Close(ctx context.Context, exit Exit) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateConfirmed {
		return ErrNotConfirmed
	}
	if exit == ExitClearAndClose {
		if err := w.cart.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
	}
	w.state = StateIdle
	w.result = nil
	return nil
}

// loadPending restores an unconfirmed attempt left by an earlier workflow
// over the same cart. Callers hold w.mu.
func (w *Workflow) loadPending(ctx context.Context) {
	if w.pendingKey != "" {
		return
	}
	p, err := w.cart.PendingSubmission(ctx)
	if err != nil {
		w.logger.Warn().Err(err).Msg("failed to load pending order")
		return
	}
	if p != nil {
		w.pendingKey = p.Key
		w.pendingHash = p.Fingerprint
	}
}

type attempt struct {
	lines    []model.OrderLine
	totals   pricing.Totals
	customer Customer
	table    int
	hash     string
}

// prepare validates the submission and snapshots the cart. Callers hold w.mu.
func (w *Workflow) prepare(channel Channel, customer Customer) (*attempt, error) {
	if !slices.Contains(w.Channels(), channel) {
		return nil, ErrChannelUnavailable
	}

	lines := w.cart.Lines()
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	a := &attempt{
		lines:  Snapshot(lines),
		totals: w.cart.Totals(),
	}

	switch channel {
	case ChannelTable:
		a.table = w.cart.Scope().Table
	case ChannelWebsite:
		a.customer = Customer{
			Name:  strings.TrimSpace(customer.Name),
			Phone: strings.TrimSpace(customer.Phone),
		}
		if a.customer.Name == "" {
			return nil, &ValidationError{Field: "customerName", Message: "name is required"}
		}
		if a.customer.Phone == "" {
			return nil, &ValidationError{Field: "customerPhone", Message: "phone is required"}
		}
	}

	a.hash = fingerprint(channel, a)
	return a, nil
}

func (w *Workflow) send(ctx context.Context, channel Channel, a *attempt, key string) (*model.Order, error) {
	total, discount := a.totals.Price, a.totals.Discount

	switch channel {
	case ChannelTable:
		return w.submitter.SubmitTableOrder(ctx, &model.CreateTableOrderRequest{
			AdminID:       w.tenant.ID,
			TableNumber:   a.table,
			Items:         a.lines,
			TotalPrice:    total,
			TotalDiscount: discount,
		}, key)
	case ChannelWebsite:
		return w.submitter.SubmitOrder(ctx, &model.CreateOrderRequest{
			AdminID:       w.tenant.ID,
			OrderType:     model.OrderKindWebsite,
			Items:         a.lines,
			TotalPrice:    total,
			TotalDiscount: discount,
			CustomerName:  a.customer.Name,
			CustomerPhone: a.customer.Phone,
		}, key)
	case ChannelWhatsApp:
		return w.submitter.SubmitOrder(ctx, &model.CreateOrderRequest{
			AdminID:       w.tenant.ID,
			OrderType:     model.OrderKindWhatsApp,
			Items:         a.lines,
			TotalPrice:    total,
			TotalDiscount: discount,
		}, key)
	}
	return nil, ErrChannelUnavailable
}

// Snapshot freezes cart lines into order lines, dropping the item ids.
func Snapshot(lines []cart.Line) []model.OrderLine {
	out := make([]model.OrderLine, len(lines))
	for i, l := range lines {
		out[i] = model.OrderLine{
			Name:            l.Name,
			Quantity:        l.Quantity,
			Price:           l.UnitPrice,
			DiscountedPrice: l.DiscountedUnitPrice,
			ImageURL:        l.ImageURL,
		}
	}
	return out
}

func fingerprint(channel Channel, a *attempt) string {
	payload, _ := json.Marshal(struct {
		Channel  Channel           `json:"c"`
		Lines    []model.OrderLine `json:"l"`
		Customer Customer          `json:"u"`
		Table    int               `json:"t"`
	}{channel, a.lines, a.customer, a.table})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
