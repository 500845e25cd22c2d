package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/guiadoapostador/tipster-api/internal/domain/tipster"
	"github.com/guiadoapostador/tipster-api/internal/usecase"
)

type Handler struct {
	rankingService   *usecase.RankingService
	directoryService *usecase.DirectoryService
	logger           *slog.Logger
	validator        *validator.Validate
}

func NewHandler(
	rankingService *usecase.RankingService,
	directoryService *usecase.DirectoryService,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		rankingService:   rankingService,
		directoryService: directoryService,
		logger:           logger,
		validator:        validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) GetRankings(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetRankings")
	defer span.End()

	req, err := parseRankingsRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.rankingService.Rank(ctx, usecase.RankingQuery{
		Sport:  req.Sport,
		Period: req.Period,
		Order:  req.Order,
		Last:   req.Last,
		Limit:  req.Limit,
		Slugs:  req.Slugs,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "rank tipsters failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, rankingsToDTO(ctx, result))
}

func (h *Handler) ListTipsters(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListTipsters")
	defer span.End()

	roster, err := h.directoryService.ResolveAll(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "resolve tipster roster failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]tipsterDTO, 0, len(roster.Tipsters))
	for _, item := range roster.Tipsters {
		items = append(items, tipsterToDTO(item))
	}

	writeSuccess(ctx, w, http.StatusOK, rosterDTO{
		Tipsters: items,
		Source:   string(roster.Source),
	})
}

func (h *Handler) GetTipsterStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetTipsterStats")
	defer span.End()

	req := tipsterStatsRequest{
		Slug:   strings.TrimSpace(r.PathValue("slug")),
		Sport:  strings.TrimSpace(r.URL.Query().Get("sport")),
		Period: strings.TrimSpace(r.URL.Query().Get("period")),
	}
	last, err := parseIntQuery(r, "last")
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	req.Last = last

	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	row, err := h.rankingService.StatsBySlug(ctx, usecase.StatsQuery{
		Slug:   req.Slug,
		Last:   req.Last,
		Sport:  req.Sport,
		Period: req.Period,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "tipster stats failed", "slug", req.Slug, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, rowToDTO(ctx, 0, row))
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

type rankingsRequest struct {
	Sport  string   `validate:"omitempty,max=40"`
	Period string   `validate:"omitempty,max=10"`
	Order  string   `validate:"omitempty,max=10"`
	Last   int      `validate:"min=0"`
	Limit  int      `validate:"min=0"`
	Slugs  []string `validate:"max=50,dive,max=100"`
}

type tipsterStatsRequest struct {
	Slug   string `validate:"required,max=100"`
	Last   int    `validate:"min=0"`
	Sport  string `validate:"omitempty,max=40"`
	Period string `validate:"omitempty,max=10"`
}

func parseRankingsRequest(r *http.Request) (rankingsRequest, error) {
	query := r.URL.Query()
	out := rankingsRequest{
		Sport:  strings.TrimSpace(query.Get("sport")),
		Period: strings.TrimSpace(query.Get("period")),
		Order:  strings.TrimSpace(query.Get("order")),
	}

	last, err := parseIntQuery(r, "last")
	if err != nil {
		return rankingsRequest{}, err
	}
	out.Last = last

	limit, err := parseIntQuery(r, "limit")
	if err != nil {
		return rankingsRequest{}, err
	}
	out.Limit = limit

	if raw := strings.TrimSpace(query.Get("slugs")); raw != "" {
		for _, slug := range strings.Split(raw, ",") {
			slug = strings.TrimSpace(slug)
			if slug != "" {
				out.Slugs = append(out.Slugs, slug)
			}
		}
	}
	return out, nil
}

func parseIntQuery(r *http.Request, key string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", usecase.ErrInvalidInput, key)
	}
	return value, nil
}

type rosterDTO struct {
	Tipsters []tipsterDTO `json:"tipsters"`
	Source   string       `json:"source"`
}

type tipsterDTO struct {
	ID          int64  `json:"id,omitempty"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	Description string `json:"description,omitempty"`
}

type sampleDTO struct {
	Size        int      `json:"size"`
	Settled     int      `json:"settled"`
	Wins        int      `json:"wins"`
	Losses      int      `json:"losses"`
	Pushes      int      `json:"pushes"`
	HitRatePct  float64  `json:"hitRatePct"`
	ROIPct      float64  `json:"roiPct"`
	ProfitUnits float64  `json:"profitUnits"`
	StakeUnits  float64  `json:"stakeUnits"`
	Sports      []string `json:"sports"`
	LastTipAt   string   `json:"lastTipAt,omitempty"`
}

type rankingRowDTO struct {
	Position      int        `json:"position,omitempty"`
	Tipster       tipsterDTO `json:"tipster"`
	TotalTips     int        `json:"totalTips"`
	TotalArticles int        `json:"totalArticles"`
	Overall       sampleDTO  `json:"overall"`
	Last10        sampleDTO  `json:"last10"`
	Partial       bool       `json:"partial,omitempty"`
	Degraded      bool       `json:"degraded,omitempty"`
}

type rankingsDTO struct {
	Items        []rankingRowDTO `json:"items"`
	Order        string          `json:"order"`
	Sport        string          `json:"sport"`
	Period       string          `json:"period"`
	Last         int             `json:"last"`
	Limit        int             `json:"limit"`
	RosterSource string          `json:"rosterSource"`
	GeneratedAt  string          `json:"generatedAt"`
}

func rankingsToDTO(ctx context.Context, result usecase.RankingResult) rankingsDTO {
	ctx, span := startSpan(ctx, "httpapi.rankingsToDTO")
	defer span.End()

	items := make([]rankingRowDTO, 0, len(result.Rows))
	for i, row := range result.Rows {
		items = append(items, rowToDTO(ctx, i+1, row))
	}

	return rankingsDTO{
		Items:        items,
		Order:        result.Query.Order,
		Sport:        result.Query.Sport,
		Period:       result.Query.Period,
		Last:         result.Query.Last,
		Limit:        result.Query.Limit,
		RosterSource: string(result.RosterSource),
		GeneratedAt:  result.GeneratedAt.UTC().Format(time.RFC3339),
	}
}

func rowToDTO(ctx context.Context, position int, row usecase.RankingRow) rankingRowDTO {
	ctx, span := startSpan(ctx, "httpapi.rowToDTO")
	defer span.End()

	return rankingRowDTO{
		Position:      position,
		Tipster:       tipsterToDTO(row.Tipster),
		TotalTips:     row.TotalTips,
		TotalArticles: row.TotalArticles,
		Overall:       sampleToDTO(row.Performance.Overall),
		Last10:        sampleToDTO(row.Performance.Last10),
		Partial:       row.Partial,
		Degraded:      row.Degraded,
	}
}

func tipsterToDTO(v tipster.Tipster) tipsterDTO {
	return tipsterDTO{
		ID:          v.ID,
		Slug:        v.Slug,
		Name:        v.Name,
		AvatarURL:   v.AvatarURL,
		Description: v.Description,
	}
}

func sampleToDTO(v tipster.Sample) sampleDTO {
	sports := make([]string, 0, len(v.Sports))
	for _, sport := range v.Sports {
		sports = append(sports, string(sport))
	}

	out := sampleDTO{
		Size:        v.Size,
		Settled:     v.Settled,
		Wins:        v.Wins,
		Losses:      v.Losses,
		Pushes:      v.Pushes,
		HitRatePct:  v.HitPct,
		ROIPct:      v.ROIPct,
		ProfitUnits: v.ProfitTotal,
		StakeUnits:  v.StakeTotal,
		Sports:      sports,
	}
	if v.LastDate != nil {
		out.LastTipAt = v.LastDate.UTC().Format(time.RFC3339)
	}
	return out
}
