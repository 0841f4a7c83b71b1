package controllers

import (
	"antislack/internal/host"
	"antislack/internal/models"
	"antislack/internal/providers"
	"antislack/internal/rules"
	"antislack/internal/services"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RuleMatcherInterface exposes the installed rule set to the API.
type RuleMatcherInterface interface {
	host.RuleEngineInterface
	Match(rawURL string) (host.Rule, bool)
}

// ApiController serves the settings, blocklist and navigation endpoints.
type ApiController struct {
	logger providers.Logger
	config services.ConfigServiceInterface
	guard  services.GuardServiceInterface
	engine RuleMatcherInterface
}

func NewApiController(
	logger providers.Logger,
	config services.ConfigServiceInterface,
	guard services.GuardServiceInterface,
	engine RuleMatcherInterface,
) *ApiController {
	return &ApiController{
		logger: logger,
		config: config,
		guard:  guard,
		engine: engine,
	}
}

type siteView struct {
	models.BlockedSite
	EffectiveMode string `json:"effectiveMode"`
	AutoRedirect  bool   `json:"autoRedirect"`
	TargetURL     string `json:"targetUrl"`
}

type enabledRequest struct {
	Enabled    bool   `json:"enabled"`
	Passphrase string `json:"passphrase"`
}

type patternRequest struct {
	Pattern string `json:"pattern"`
}

type urlRequest struct {
	URL string `json:"url"`
}

type undoRequest struct {
	Token string `json:"token"`
}

type redirectRequest struct {
	URL         string `json:"url"`
	RedirectURL string `json:"redirectUrl"`
}

type checkResponse struct {
	Blocked bool       `json:"blocked"`
	Rule    *host.Rule `json:"rule,omitempty"`
}

func (ac *ApiController) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ac.config.GetSettings(r.Context()))
}

func (ac *ApiController) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch models.SettingsPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	settings, err := ac.guard.UpdateSettings(r.Context(), patch)
	if err != nil {
		writeError(w, ac.logger, providers.TypePost, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (ac *ApiController) SetEnabled(w http.ResponseWriter, r *http.Request) {
	var req enabledRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	settings, err := ac.guard.SetEnabled(r.Context(), req.Enabled, req.Passphrase)
	if err != nil {
		writeError(w, ac.logger, providers.TypePost, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (ac *ApiController) ListSites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	settings := ac.config.GetSettings(ctx)
	sites := ac.config.GetSites(ctx)

	views := make([]siteView, 0, len(sites))
	for _, site := range sites {
		views = append(views, siteView{
			BlockedSite:   site,
			EffectiveMode: rules.EffectiveMode(site, settings),
			AutoRedirect:  rules.ResolveAutoRedirect(site, settings),
			TargetURL:     rules.ResolveTargetURL(site, settings),
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (ac *ApiController) AddSite(w http.ResponseWriter, r *http.Request) {
	var req patternRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	site, err := ac.guard.AddSite(r.Context(), req.Pattern)
	if err != nil {
		writeError(w, ac.logger, providers.TypePost, err)
		return
	}
	writeJSON(w, http.StatusCreated, site)
}

func (ac *ApiController) UpdateSite(w http.ResponseWriter, r *http.Request) {
	var update services.SiteUpdate
	if !decodeJSON(w, r, &update) {
		return
	}
	site, err := ac.guard.UpdateSite(r.Context(), chi.URLParam(r, "id"), update)
	if err != nil {
		writeError(w, ac.logger, providers.TypePost, err)
		return
	}
	writeJSON(w, http.StatusOK, site)
}

func (ac *ApiController) RemoveSite(w http.ResponseWriter, r *http.Request) {
	if err := ac.guard.RemoveSite(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, ac.logger, providers.TypePost, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ac *ApiController) QuickBlock(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := ac.guard.QuickBlock(r.Context(), req.URL)
	if err != nil {
		writeError(w, ac.logger, providers.TypePost, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (ac *ApiController) Undo(w http.ResponseWriter, r *http.Request) {
	var req undoRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := ac.guard.Undo(r.Context(), req.Token); err != nil {
		writeError(w, ac.logger, providers.TypePost, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BlockPage returns the view model of the page shown for ?blocked=<pattern>.
func (ac *ApiController) BlockPage(w http.ResponseWriter, r *http.Request) {
	view, err := ac.guard.ViewBlockPage(r.Context(), r.URL.Query().Get("blocked"))
	if err != nil {
		writeError(w, ac.logger, providers.TypeGet, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (ac *ApiController) TrackRedirect(w http.ResponseWriter, r *http.Request) {
	var req redirectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tracked := ac.guard.TrackRedirect(r.Context(), req.URL, req.RedirectURL)
	writeJSON(w, http.StatusOK, map[string]bool{"tracked": tracked})
}

func (ac *ApiController) GetRules(w http.ResponseWriter, r *http.Request) {
	installed, err := ac.engine.GetDynamicRules(r.Context())
	if err != nil {
		writeError(w, ac.logger, providers.TypeRules, err)
		return
	}
	writeJSON(w, http.StatusOK, installed)
}

func (ac *ApiController) Check(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "url is required"})
		return
	}
	rule, ok := ac.engine.Match(target)
	if !ok {
		writeJSON(w, http.StatusOK, checkResponse{})
		return
	}
	writeJSON(w, http.StatusOK, checkResponse{Blocked: true, Rule: &rule})
}
