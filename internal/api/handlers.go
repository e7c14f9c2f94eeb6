// Package api exposes the pipeline over HTTP.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"statuscomms/internal/attest"
	"statuscomms/internal/config"
	"statuscomms/internal/extract"
	"statuscomms/internal/httputil"
	"statuscomms/internal/incident"
	"statuscomms/internal/logging"
	"statuscomms/internal/pipeline"
	"statuscomms/internal/runs"
)

type generateRequest struct {
	Phase   string               `json:"phase"`
	Sources []incident.RawSource `json:"sources"`
}

type fromEvidenceRequest struct {
	Phase    string                     `json:"phase"`
	Evidence incident.ExtractedEvidence `json:"evidence"`
}

type evaluateRequest struct {
	Phase    string                     `json:"phase"`
	Draft    incident.GeneratedDraft    `json:"draft"`
	Evidence incident.ExtractedEvidence `json:"evidence"`
}

type judgeRequest struct {
	Draft    incident.GeneratedDraft    `json:"draft"`
	Evidence incident.ExtractedEvidence `json:"evidence"`
}

// VerifyRequest is the JSON body for POST /api/verify.
type VerifyRequest struct {
	RunID           string `json:"run_id,omitempty"`
	ProofB64        string `json:"proof_b64"`
	PublicInputsB64 string `json:"public_inputs_b64"`
}

// VerifyResponse is the JSON response for POST /api/verify.
type VerifyResponse struct {
	RunID    string `json:"run_id,omitempty"`
	Verified bool   `json:"verified"`
	Message  string `json:"message,omitempty"`
}

// Handlers serves the pipeline stages. Store and Attester may be nil.
type Handlers struct {
	pipeline *pipeline.Pipeline
	store    runs.Store
	attester *attest.Attester
	logger   *slog.Logger
}

func New(p *pipeline.Pipeline, store runs.Store, attester *attest.Attester) *Handlers {
	return &Handlers{pipeline: p, store: store, attester: attester, logger: logging.New("api")}
}

// decode reads a size-limited strict JSON body. It writes the error response
// and returns false on failure.
func decode(c *gin.Context, limit int64, v any) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	if err := httputil.DecodeStrict(c.Request.Body, v); err != nil {
		if httputil.IsBodyTooLarge(err) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

func parsePhase(c *gin.Context, raw string) (incident.Phase, bool) {
	phase, err := incident.ParsePhase(strings.TrimSpace(raw))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return phase, true
}

// StatusFor maps a pipeline error to an HTTP status.
func StatusFor(err error) int {
	switch incident.Classify(err) {
	case incident.ClassMalformedEvidence, incident.ClassGenerationConstraint, incident.ClassJudgmentUnavailable:
		return http.StatusBadGateway
	case incident.ClassServiceTimeout:
		return http.StatusGatewayTimeout
	case incident.ClassCanceled:
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}

func (h *Handlers) fail(c *gin.Context, err error) {
	status := StatusFor(err)
	class := incident.Classify(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
	}
	c.JSON(status, gin.H{"error": err.Error(), "class": class})
}

func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handlers) Ready(c *gin.Context) {
	if h.store != nil {
		if err := h.store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "error": "run archive unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GenerateDraft runs the whole pipeline.
func (h *Handlers) GenerateDraft(c *gin.Context) {
	var req generateRequest
	if !decode(c, config.MaxRequestBytes, &req) {
		return
	}
	phase, ok := parsePhase(c, req.Phase)
	if !ok {
		return
	}
	if err := extract.ValidateSources(req.Sources); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.pipeline.Run(c.Request.Context(), req.Sources, phase)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handlers) ExtractEvidence(c *gin.Context) {
	var req generateRequest
	if !decode(c, config.MaxRequestBytes, &req) {
		return
	}
	phase, ok := parsePhase(c, req.Phase)
	if !ok {
		return
	}
	if err := extract.ValidateSources(req.Sources); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ev, err := h.pipeline.Extract(c.Request.Context(), req.Sources, phase)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"evidence": ev})
}

func (h *Handlers) GenerateFromEvidence(c *gin.Context) {
	var req fromEvidenceRequest
	if !decode(c, config.MaxRequestBytes, &req) {
		return
	}
	phase, ok := parsePhase(c, req.Phase)
	if !ok {
		return
	}
	d, err := h.pipeline.Generate(c.Request.Context(), req.Evidence, phase)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": d})
}

// EvaluateDraft runs the guardrails only; it never calls the service.
func (h *Handlers) EvaluateDraft(c *gin.Context) {
	var req evaluateRequest
	if !decode(c, config.MaxRequestBytes, &req) {
		return
	}
	phase, ok := parsePhase(c, req.Phase)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"deterministic_checks": h.pipeline.Check(req.Draft, req.Evidence, phase)})
}

func (h *Handlers) EvaluateWithJudge(c *gin.Context) {
	var req judgeRequest
	if !decode(c, config.MaxRequestBytes, &req) {
		return
	}
	if strings.TrimSpace(req.Draft.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "draft.message is required"})
		return
	}
	scores, err := h.pipeline.Judge(c.Request.Context(), req.Draft, req.Evidence)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"judgment_scores": scores})
}

func (h *Handlers) GetRun(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run archive disabled"})
		return
	}
	rec, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, runs.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handlers) StatusExamples(c *gin.Context) {
	c.JSON(http.StatusOK, h.pipeline.Style())
}

// Verify checks an attestation proof against its public inputs.
func (h *Handlers) Verify(c *gin.Context) {
	var req VerifyRequest
	if !decode(c, config.MaxVerifyBytes, &req) {
		return
	}
	proofB64 := strings.TrimSpace(req.ProofB64)
	publicInputsB64 := strings.TrimSpace(req.PublicInputsB64)
	if proofB64 == "" || publicInputsB64 == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing proof or public inputs"})
		return
	}
	if h.attester == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "attestation disabled"})
		return
	}
	verified, msg, err := h.attester.Verify(proofB64, publicInputsB64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, VerifyResponse{
		RunID:    strings.TrimSpace(req.RunID),
		Verified: verified,
		Message:  msg,
	})
}
