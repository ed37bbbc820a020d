package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/timedealhq/creditbot/internal/app"
	"github.com/timedealhq/creditbot/pkg/domain/access"
	"github.com/timedealhq/creditbot/pkg/domain/credit"
	"github.com/timedealhq/creditbot/pkg/domain/group"
	"github.com/timedealhq/creditbot/pkg/logger"
	"github.com/timedealhq/creditbot/pkg/validator"
)

// CommandHandler exposes the command facade over HTTP. The chat
// platform adapter calls it with the caller identity and typed
// arguments; rendering and visibility policy stay on the adapter's
// side.
type CommandHandler struct {
	commands *app.CommandService
	logger   *logger.Logger
}

// NewCommandHandler creates a new CommandHandler.
func NewCommandHandler(commands *app.CommandService, log *logger.Logger) *CommandHandler {
	return &CommandHandler{
		commands: commands,
		logger:   log.With("component", "command_handler"),
	}
}

// commandRequest carries the typed arguments a dispatch call may have.
type commandRequest struct {
	CallerID   int64  `json:"caller_id"`
	TargetID   int64  `json:"target_id,omitempty"`
	Amount     int64  `json:"amount,omitempty"`
	Identifier string `json:"identifier,omitempty"`
	Role       string `json:"role,omitempty"`
	RoleID     int64  `json:"role_id,omitempty"`
	Confirm    bool   `json:"confirm,omitempty"`
	Force      bool   `json:"force,omitempty"`
}

// Register mounts the dispatch routes.
func (h *CommandHandler) Register(r chi.Router) {
	r.Post("/v1/commands/{name}", h.dispatch)
}

func (h *CommandHandler) dispatch(w http.ResponseWriter, req *http.Request) {
	var in commandRequest
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if in.CallerID == 0 {
		writeError(w, http.StatusBadRequest, "caller_id is required")
		return
	}

	ctx := req.Context()
	name := access.Command(chi.URLParam(req, "name"))

	var (
		result any
		err    error
	)

	switch name {
	case access.CommandCredits:
		result, err = h.commands.Credits(ctx, app.CreditsInput{CallerID: in.CallerID, TargetID: in.TargetID})
	case access.CommandCreditsLeaderboard:
		result, err = h.commands.CreditsLeaderboard(ctx, in.CallerID)
	case access.CommandAddCredits:
		result, err = h.commands.AddCredits(ctx, app.AdjustCreditsInput{CallerID: in.CallerID, TargetID: in.TargetID, Amount: in.Amount})
	case access.CommandSubCredits:
		result, err = h.commands.SubCredits(ctx, app.AdjustCreditsInput{CallerID: in.CallerID, TargetID: in.TargetID, Amount: in.Amount})
	case access.CommandSetCredits:
		result, err = h.commands.SetCredits(ctx, app.SetCreditsInput{CallerID: in.CallerID, TargetID: in.TargetID, Amount: in.Amount})
	case access.CommandWipeCredits:
		err = h.commands.WipeCredits(ctx, in.CallerID, in.Confirm)
	case access.CommandWhitelist:
		err = h.commands.Whitelist(ctx, app.WhitelistInput{CallerID: in.CallerID, TargetID: in.TargetID, Role: in.Role})
	case access.CommandUnwhitelist:
		result, err = h.commands.Unwhitelist(ctx, in.CallerID, in.TargetID)
	case access.CommandRanks:
		result, err = h.commands.Ranks(ctx, in.CallerID, in.Force)
	case access.CommandGetRank:
		result, err = h.commands.GetRank(ctx, in.CallerID, in.Identifier)
	case access.CommandSetRank:
		result, err = h.commands.SetRank(ctx, app.SetRankInput{CallerID: in.CallerID, Identifier: in.Identifier, RoleID: in.RoleID})
	case access.CommandUnrank:
		result, err = h.commands.Unrank(ctx, in.CallerID, in.Identifier)
	case access.CommandRankAll:
		result, err = h.commands.RankAll(ctx, app.RankAllInput{CallerID: in.CallerID, RoleID: in.RoleID, Confirm: in.Confirm})
	case "sweepstatus":
		// Gated like rankall inside the facade.
		result, err = h.commands.SweepStatus(ctx, in.CallerID)
	default:
		writeError(w, http.StatusNotFound, "unknown command")
		return
	}

	if err != nil {
		h.writeCommandError(w, name, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"result": result})
}

// writeCommandError maps domain errors onto HTTP statuses. Permission
// denials never reveal which tier the command needed.
func (h *CommandHandler) writeCommandError(w http.ResponseWriter, name access.Command, err error) {
	var verrs validator.ValidationErrors
	var upstream *group.UpstreamError

	switch {
	case errors.Is(err, access.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, "you do not have permission to use this command")
	case errors.Is(err, credit.ErrInvalidAmount),
		errors.Is(err, access.ErrInvalidRole),
		errors.Is(err, app.ErrConfirmationRequired),
		errors.As(err, &verrs):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrUnresolvedIdentifier),
		errors.Is(err, group.ErrNotInGroup):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, group.ErrNoAssignableRole):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, group.ErrUpstreamUnavailable),
		errors.As(err, &upstream):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		h.logger.Error("command failed", "command", string(name), "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
