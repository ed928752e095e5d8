package game

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/alex-gusto/buzzer/internal/v1/logging"
	"github.com/alex-gusto/buzzer/internal/v1/types"
)

// ShareCodeTTL is how long an issued share code stays claimable.
const ShareCodeTTL = 5 * time.Minute

// ShareInfo is what a host gets back from issuing a share code.
type ShareInfo struct {
	ShareCode string       `json:"shareCode"`
	ExpiresAt types.Millis `json:"expiresAt"`
}

// ClaimInfo is what a claiming device gets back: enough to act as host.
type ClaimInfo struct {
	Code       types.RoomCodeType `json:"code"`
	HostSecret string             `json:"hostSecret"`
	ExpiresAt  types.Millis       `json:"expiresAt"`
}

// --- room side ---

// cleanupShareLocked drops the share fields once expired. Expiry is lazy:
// there is no timer, every share-touching read goes through here first.
func (r *Room) cleanupShareLocked() {
	if r.shareCodeExpiresAt == 0 {
		return
	}
	if r.shareCodeExpiresAt > types.NowMillis() {
		return
	}
	r.shareCode = ""
	r.shareCodeIssuedAt = 0
	r.shareCodeExpiresAt = 0
}

// shareInUse reports whether this room currently holds the given code.
func (r *Room) shareInUse(code string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cleanupShareLocked()
	return r.shareCode != "" && r.shareCode == code
}

// matchShare resolves a claim against this room, expiring stale codes as a
// side effect.
func (r *Room) matchShare(code string) (ClaimInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cleanupShareLocked()
	if r.shareCode == "" || r.shareCode != code {
		return ClaimInfo{}, false
	}
	return ClaimInfo{
		Code:       r.Code,
		HostSecret: r.hostSecret,
		ExpiresAt:  r.shareCodeExpiresAt,
	}, true
}

func (r *Room) setShare(code string, issuedAt, expiresAt types.Millis) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.shareCode = code
	r.shareCodeIssuedAt = issuedAt
	r.shareCodeExpiresAt = expiresAt
}

// --- registry side ---

// IssueShare binds a fresh share code to the room, replacing any code the
// room already had. The registry lock is held for the whole draw so two
// concurrent issues cannot land on the same digits.
func (reg *Registry) IssueShare(ctx context.Context, room *Room) ShareInfo {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	var code string
	for {
		candidate := randomShareCode()
		if !reg.shareCodeTakenLocked(candidate) {
			code = candidate
			break
		}
	}

	now := types.NowMillis()
	expiresAt := now + types.Millis(ShareCodeTTL.Milliseconds())
	room.setShare(code, now, expiresAt)

	logging.Info(ctx, "Share code issued",
		zap.String("room", string(room.Code)),
		zap.Int64("expiresAt", int64(expiresAt)))

	return ShareInfo{ShareCode: code, ExpiresAt: expiresAt}
}

func (reg *Registry) shareCodeTakenLocked(code string) bool {
	for _, room := range reg.rooms {
		if room.shareInUse(code) {
			return true
		}
	}
	return false
}

// ClaimShare exchanges a live share code for the room's host credentials.
func (reg *Registry) ClaimShare(ctx context.Context, code string) (ClaimInfo, error) {
	if !isShareCodeFormat(code) {
		return ClaimInfo{}, ErrInvalidShareCode
	}

	reg.mu.RLock()
	defer reg.mu.RUnlock()

	for _, room := range reg.rooms {
		if claim, ok := room.matchShare(code); ok {
			logging.Info(ctx, "Share code claimed", zap.String("room", string(claim.Code)))
			return claim, nil
		}
	}
	return ClaimInfo{}, ErrShareCodeNotFound
}
