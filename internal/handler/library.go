package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/H4ckMM3/Snippet-Bot/internal/apperror"
	"github.com/H4ckMM3/Snippet-Bot/internal/model"
	"github.com/H4ckMM3/Snippet-Bot/internal/service"
	"github.com/H4ckMM3/Snippet-Bot/internal/session"
)

// identityHeader carries the caller's user id. The chat transport in front
// of this API authenticates users; by the time a request reaches us the id
// is trusted as-is.
const identityHeader = "X-User-ID"

// LibraryHandler exposes the snippet library over HTTP. It owns no state of
// its own; every operation delegates to the service layer and translates
// the outcome to JSON.
type LibraryHandler struct {
	library *service.Library
	logger  *slog.Logger
}

// NewLibraryHandler creates a LibraryHandler over the given service.
func NewLibraryHandler(library *service.Library, logger *slog.Logger) *LibraryHandler {
	return &LibraryHandler{library: library, logger: logger}
}

// requireUser extracts the caller id from the identity header. A missing id
// is a caller bug, reported as a validation error.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get(identityHeader)
	if id == "" {
		writeError(w, apperror.ValidationFailed("userId", "missing "+identityHeader+" header"))
		return "", false
	}
	return id, true
}

// submitRequest is the body of POST /api/snippets.
type submitRequest struct {
	Name     string   `json:"name"`
	Code     string   `json:"code"`
	Language string   `json:"language"`
	Tags     []string `json:"tags"`
}

// HandleSubmit queues a new snippet for moderation.
//
// HTTP: POST /api/snippets
// The snippet is not published yet, so the success status is 202 Accepted.
func (h *LibraryHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	pending, err := h.library.Submit(userID, req.Name, req.Code, req.Language, req.Tags)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, pending)
}

// listResponse is one rendered page of the library.
type listResponse struct {
	Items      []model.Snippet   `json:"items"`
	Page       int               `json:"page"`
	TotalPages int               `json:"totalPages"`
	Handles    map[string]string `json:"handles,omitempty"`
}

// HandleList returns one page of approved snippets.
//
// HTTP: GET /api/snippets?q=...&language=...&tag=...&page=N&session=SID
//
// The q / language / tag parameters select at most one projection, in that
// order of precedence. When a session id is supplied, short handles for the
// page's snippets are built into that session and returned alongside.
func (h *LibraryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var items []model.Snippet
	switch {
	case q.Get("q") != "":
		items = h.library.Search(q.Get("q"))
	case q.Get("language") != "":
		items = h.library.FilterByLanguage(q.Get("language"))
	case q.Get("tag") != "":
		items = h.library.FilterByTag(q.Get("tag"))
	default:
		items = h.library.All()
	}

	// Atoi failure leaves page at 0, the first page.
	page, _ := strconv.Atoi(q.Get("page"))
	pageItems, page := session.Page(items, page)
	if pageItems == nil {
		pageItems = []model.Snippet{}
	}

	resp := listResponse{
		Items:      pageItems,
		Page:       page,
		TotalPages: session.TotalPages(len(items)),
	}

	if sid := q.Get("session"); sid != "" {
		keys := make([]string, len(pageItems))
		for i, sn := range pageItems {
			keys[i] = sn.Name
		}
		handles, err := h.library.BuildHandles(sid, keys)
		if err != nil {
			writeError(w, err)
			return
		}
		resp.Handles = handles
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleUse returns a snippet and records the use.
//
// HTTP: POST /api/snippets/{name}/use
//
// Retrieval is a use: the increment is the side effect the popularity
// achievements are built on, so reading without counting is not offered.
func (h *LibraryHandler) HandleUse(w http.ResponseWriter, r *http.Request) {
	snippet, err := h.library.UseSnippet(r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snippet)
}

// HandleDelete removes an approved snippet. Only its author may do this.
//
// HTTP: DELETE /api/snippets/{name}
func (h *LibraryHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.library.DeleteSnippet(r.PathValue("name"), userID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// favoriteResponse reports the state of a favorite after a toggle.
type favoriteResponse struct {
	Favorited bool `json:"favorited"`
	Changed   bool `json:"changed"`
}

// HandleFavorite adds a snippet to the caller's favorites.
//
// HTTP: PUT /api/snippets/{name}/favorite
func (h *LibraryHandler) HandleFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	changed, err := h.library.Favorite(userID, r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, favoriteResponse{Favorited: true, Changed: changed})
}

// HandleUnfavorite removes a snippet from the caller's favorites.
//
// HTTP: DELETE /api/snippets/{name}/favorite
func (h *LibraryHandler) HandleUnfavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	changed, err := h.library.Unfavorite(userID, r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, favoriteResponse{Favorited: false, Changed: changed})
}

// HandleFavorites returns the caller's favorite snippets.
//
// HTTP: GET /api/favorites
func (h *LibraryHandler) HandleFavorites(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	favorites, err := h.library.Favorites(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if favorites == nil {
		favorites = []model.Snippet{}
	}
	writeJSON(w, http.StatusOK, favorites)
}

// HandleProfile returns the caller's reputation view, refreshing their
// derived stats first.
//
// HTTP: GET /api/profile
func (h *LibraryHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	profile, err := h.library.Profile(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleStats returns library-wide aggregates.
//
// HTTP: GET /api/stats
func (h *LibraryHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.library.Statistics())
}

// HandlePending returns the moderation queue. Admin only.
//
// HTTP: GET /api/pending
func (h *LibraryHandler) HandlePending(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	queue, err := h.library.PendingList(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if queue == nil {
		queue = []model.PendingSnippet{}
	}
	writeJSON(w, http.StatusOK, queue)
}

// HandleApprove publishes a pending snippet. Admin only.
//
// HTTP: POST /api/pending/{name}/approve
func (h *LibraryHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	snippet, err := h.library.Approve(r.PathValue("name"), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snippet)
}

// rejectRequest is the body of POST /api/pending/{name}/reject.
type rejectRequest struct {
	Reason string `json:"reason"`
}

// HandleReject removes a pending snippet with a reason. Admin only.
//
// HTTP: POST /api/pending/{name}/reject
func (h *LibraryHandler) HandleReject(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	if err := h.library.Reject(r.PathValue("name"), userID, req.Reason); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// grantAdminResponse reports whether the grant actually changed anything.
type grantAdminResponse struct {
	Granted bool `json:"granted"`
}

// HandleGrantAdmin adds a user to the administrator set. Only an existing
// admin may grant; the first admins are seeded from configuration at
// startup.
//
// HTTP: POST /api/admins/{id}
func (h *LibraryHandler) HandleGrantAdmin(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if !h.library.IsAdmin(userID) {
		writeError(w, apperror.Forbidden("administrator access required"))
		return
	}

	granted, err := h.library.GrantAdmin(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, grantAdminResponse{Granted: granted})
}

// sessionResponse is the body of a freshly minted session.
type sessionResponse struct {
	SessionID string `json:"sessionId"`
}

// HandleNewSession mints an id for a render session. Handles built under
// this id stay resolvable until the next build or a reset.
//
// HTTP: POST /api/sessions
func (h *LibraryHandler) HandleNewSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, sessionResponse{SessionID: session.NewSessionID()})
}

// resolveResponse maps a handle back to the snippet name it addressed.
type resolveResponse struct {
	Name string `json:"name"`
}

// HandleResolve resolves a short handle from a previous render.
//
// HTTP: GET /api/sessions/{sid}/handles/{handle}
func (h *LibraryHandler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	name, err := h.library.ResolveHandle(r.PathValue("sid"), r.PathValue("handle"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resolveResponse{Name: name})
}

// HandleResetSession drops a session's handle map.
//
// HTTP: DELETE /api/sessions/{sid}
func (h *LibraryHandler) HandleResetSession(w http.ResponseWriter, r *http.Request) {
	h.library.ResetSession(r.PathValue("sid"))
	w.WriteHeader(http.StatusNoContent)
}
