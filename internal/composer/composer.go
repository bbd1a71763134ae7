// Package composer turns stock data into notification text. It asks an
// external text-generation service first and falls back to fixed templates
// whenever the service fails or answers with something unusable.
package composer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/restock-systems/stockwatch/common/logging"
	"github.com/restock-systems/stockwatch/internal/metrics"
	"github.com/restock-systems/stockwatch/internal/models"
)

// Kind selects the prompt, response schema and fallback template.
type Kind string

const (
	KindSingleItemAlert   Kind = "single-item-alert"
	KindBatchSummary      Kind = "batch-summary"
	KindSupplierOrderText Kind = "supplier-order-text"
)

// DefaultTimeout bounds a single generation call.
const DefaultTimeout = 10 * time.Second

var (
	alertTemperature float32 = 0
	orderTemperature float32 = 1.0
)

// GenerateRequest is one call to the text-generation service.
type GenerateRequest struct {
	Prompt string
	// Temperature nil means the service default.
	Temperature *float32
}

// Generator is the external text-generation capability.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// Fragment is the composed text. Alerts fill Title and Body; summaries and
// order texts fill Message.
type Fragment struct {
	Title    string `json:"title,omitempty"`
	Body     string `json:"body,omitempty"`
	Message  string `json:"message,omitempty"`
	Fallback bool   `json:"-"`
}

// Composer builds notification text.
type Composer struct {
	gen     Generator
	logger  *logging.Logger
	timeout time.Duration
}

// New creates a Composer. A nil generator makes every call use the fallback.
func New(gen Generator, logger *logging.Logger, timeout time.Duration) *Composer {
	if logger == nil {
		logger = logging.Default()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Composer{gen: gen, logger: logger, timeout: timeout}
}

// recipe describes one kind of composition.
type recipe struct {
	kind        Kind
	prompt      string
	temperature *float32
	parse       func(text string) (Fragment, error)
	fallback    func() Fragment
}

// Compose dispatches on kind. payload must be a *models.StockRecord for
// single-item alerts, a []models.AlertEntry for batch summaries and a
// *models.OrderTextRequest for supplier order texts. Only a mismatched
// payload is an error; generation problems are absorbed by the fallback.
func (c *Composer) Compose(ctx context.Context, kind Kind, payload any) (Fragment, error) {
	switch kind {
	case KindSingleItemAlert:
		rec, ok := payload.(*models.StockRecord)
		if !ok || rec == nil {
			return Fragment{}, fmt.Errorf("%w: %s needs a stock record", models.ErrValidation, kind)
		}
		return c.SingleItemAlert(ctx, rec), nil
	case KindBatchSummary:
		alerts, ok := payload.([]models.AlertEntry)
		if !ok {
			return Fragment{}, fmt.Errorf("%w: %s needs an alert list", models.ErrValidation, kind)
		}
		return c.BatchSummary(ctx, alerts), nil
	case KindSupplierOrderText:
		req, ok := payload.(*models.OrderTextRequest)
		if !ok || req == nil {
			return Fragment{}, fmt.Errorf("%w: %s needs an order request", models.ErrValidation, kind)
		}
		return c.SupplierOrderText(ctx, req), nil
	default:
		return Fragment{}, fmt.Errorf("%w: unknown composition kind %q", models.ErrValidation, kind)
	}
}

// SingleItemAlert composes the push notification for one critical record.
func (c *Composer) SingleItemAlert(ctx context.Context, rec *models.StockRecord) Fragment {
	return c.run(ctx, recipe{
		kind:        KindSingleItemAlert,
		prompt:      singleItemPrompt(rec),
		temperature: &alertTemperature,
		parse:       parseTitleBody,
		fallback:    func() Fragment { return singleItemFallback(rec) },
	})
}

// BatchSummary composes one narrative message for a forecast alert list.
func (c *Composer) BatchSummary(ctx context.Context, alerts []models.AlertEntry) Fragment {
	return c.run(ctx, recipe{
		kind:        KindBatchSummary,
		prompt:      batchSummaryPrompt(alerts),
		temperature: &alertTemperature,
		parse:       parseMessage,
		fallback:    func() Fragment { return batchSummaryFallback(alerts) },
	})
}

// SupplierOrderText composes a chat message ordering items from a supplier.
func (c *Composer) SupplierOrderText(ctx context.Context, req *models.OrderTextRequest) Fragment {
	return c.run(ctx, recipe{
		kind:        KindSupplierOrderText,
		prompt:      orderTextPrompt(req),
		temperature: &orderTemperature,
		parse:       parseMessage,
		fallback:    func() Fragment { return orderTextFallback(req) },
	})
}

func (c *Composer) run(ctx context.Context, r recipe) Fragment {
	frag, err := c.generate(ctx, r)
	if err != nil {
		c.logger.WarnContext(ctx, "text generation unusable, using fallback template",
			logging.Kind(string(r.kind)),
			logging.Error(err),
		)
		metrics.ComposerFallbacksTotal.WithLabelValues(string(r.kind)).Inc()
		frag = r.fallback()
		frag.Fallback = true
		return frag
	}
	return frag
}

func (c *Composer) generate(ctx context.Context, r recipe) (Fragment, error) {
	if c.gen == nil {
		return Fragment{}, errors.New("no text generator configured")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	text, err := c.gen.Generate(ctx, GenerateRequest{Prompt: r.prompt, Temperature: r.temperature})
	metrics.ComposerDuration.WithLabelValues(string(r.kind)).Observe(time.Since(start).Seconds())
	if err != nil {
		return Fragment{}, fmt.Errorf("%w: %v", models.ErrExternalService, err)
	}
	return r.parse(text)
}

var fenceReplacer = strings.NewReplacer("```json", "", "```JSON", "", "```", "")

// StripCodeFence removes markdown code-fence markup around a JSON answer.
func StripCodeFence(text string) string {
	return strings.TrimSpace(fenceReplacer.Replace(text))
}

func parseTitleBody(text string) (Fragment, error) {
	var out struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	if err := json.Unmarshal([]byte(StripCodeFence(text)), &out); err != nil {
		return Fragment{}, fmt.Errorf("%w: response is not a JSON object: %v", models.ErrValidation, err)
	}
	if strings.TrimSpace(out.Title) == "" || strings.TrimSpace(out.Body) == "" {
		return Fragment{}, fmt.Errorf("%w: response lacks title or body", models.ErrValidation)
	}
	return Fragment{Title: out.Title, Body: out.Body}, nil
}

func parseMessage(text string) (Fragment, error) {
	var out struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(StripCodeFence(text)), &out); err != nil {
		return Fragment{}, fmt.Errorf("%w: response is not a JSON object: %v", models.ErrValidation, err)
	}
	if strings.TrimSpace(out.Message) == "" {
		return Fragment{}, fmt.Errorf("%w: response lacks message", models.ErrValidation)
	}
	return Fragment{Message: out.Message}, nil
}
