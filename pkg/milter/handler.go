package milter

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/d--j/go-milter"
	"github.com/rs/zerolog"
	"github.com/spamid/spam-identifier/pkg/config"
	"github.com/spamid/spam-identifier/pkg/filter"
	"github.com/spamid/spam-identifier/pkg/metrics"
)

// Handler implements the milter.Milter interface for one SMTP session
type Handler struct {
	milter.NoOpMilter
	config     *config.Config
	spamFilter *filter.SpamFilter
	logger     zerolog.Logger

	// Message being received
	from string
	body bytes.Buffer

	startTime time.Time
}

// NewHandler creates a new milter handler
func NewHandler(cfg *config.Config, spamFilter *filter.SpamFilter, logger zerolog.Logger) *Handler {
	return &Handler{
		config:     cfg,
		spamFilter: spamFilter,
		logger:     logger,
		startTime:  time.Now(),
	}
}

// MailFrom starts a new message
func (h *Handler) MailFrom(from string, esmtpArgs string, m milter.Modifier) (*milter.Response, error) {
	h.reset()
	h.from = from
	return milter.RespContinue, nil
}

// BodyChunk is called for each body chunk
func (h *Handler) BodyChunk(chunk []byte, m milter.Modifier) (*milter.Response, error) {
	h.body.Write(chunk)
	return milter.RespContinue, nil
}

// EndOfMessage classifies the collected body
func (h *Handler) EndOfMessage(m milter.Modifier) (*milter.Response, error) {
	defer h.reset()

	v, err := h.spamFilter.Evaluate(bytes.NewReader(h.body.Bytes()))
	if err != nil {
		h.logger.Error().Err(err).Str("from", h.from).Msg("classification failed")
		return milter.RespTempFail, nil
	}

	if err := h.addHeaders(m, v); err != nil {
		return milter.RespTempFail, fmt.Errorf("failed to add headers: %w", err)
	}

	resp := h.determineAction(v)
	h.logger.Info().
		Str("from", h.from).
		Str("label", v.Label).
		Bool("rejected", resp != milter.RespContinue).
		Dur("elapsed", time.Since(h.startTime)).
		Msg("message classified")

	return resp, nil
}

// Abort drops the message being received
func (h *Handler) Abort(m milter.Modifier) error {
	h.reset()
	return nil
}

func (h *Handler) reset() {
	h.from = ""
	h.body.Reset()
	h.startTime = time.Now()
}

// addHeaders adds <prefix>Class and <prefix>Scores headers
func (h *Handler) addHeaders(m milter.Modifier, v filter.Verdict) error {
	prefix := h.config.Milter.HeaderPrefix

	if err := m.AddHeader(prefix+"Class", v.Label); err != nil {
		return err
	}
	return m.AddHeader(prefix+"Scores", h.formatScores(v.Scores))
}

// formatScores renders per-class scores as "S=-12.3456, H=-14.0000"
func (h *Handler) formatScores(scores []float64) string {
	parts := make([]string, len(scores))
	for class, score := range scores {
		parts[class] = h.config.LabelOf(class) + "=" + strconv.FormatFloat(score, 'f', 4, 64)
	}
	return strings.Join(parts, ", ")
}

// determineAction rejects messages whose label is configured for rejection
func (h *Handler) determineAction(v filter.Verdict) *milter.Response {
	if !h.config.ShouldReject(v.Label) {
		return milter.RespContinue
	}

	metrics.MilterRejections.Inc()

	message := h.config.Milter.RejectMessage
	if message == "" {
		message = fmt.Sprintf("5.7.1 Message rejected as %s", v.Label)
	}
	resp, err := milter.RejectWithCodeAndReason(550, message)
	if err != nil {
		return milter.RespReject
	}
	return resp
}
