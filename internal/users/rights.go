// Package users implements the user database (spec.md §3 "User record"):
// accounts with a rights bitmask, cookie-based session tokens, and the
// challenge-response authentication handshake the protocol engine's
// greeting sets up. Persistence follows the teacher's write-then-rename
// JSON store idiom (internal/playlist/store.go); password sealing uses
// golang.org/x/crypto/nacl/secretbox rather than a one-way hash because
// the challenge-response scheme requires the server to recompute
// hash(nonce||password) itself (see DESIGN.md).
package users

// Rights is a bitmask of operations a user is permitted to perform,
// per spec.md §3 "Rights bitmask" and the §6 protocol reference table.
type Rights uint64

const (
	RightPlay Rights = 1 << iota
	RightPause
	RightScratchMine
	RightScratchRandom
	RightScratchAny
	RightRemoveMine
	RightRemoveRandom
	RightRemoveAny
	RightMoveMine
	RightMoveRandom
	RightMoveAny
	RightVolume
	RightAdmin
	RightRescan
	RightRegister
	RightPrefs
	RightGlobalPrefs
	RightUserInfo
	RightRead
	// RightLocal is synthetic: granted only to connections accepted on
	// the privileged UNIX socket, never persisted on a user record and
	// never grantable via the protocol (spec.md §3, §5 "Listeners").
	RightLocal
)

// rightNames must stay in bit order for String/ParseRights round-tripping.
var rightNames = []struct {
	bit  Rights
	name string
}{
	{RightPlay, "play"},
	{RightPause, "pause"},
	{RightScratchMine, "scratch-mine"},
	{RightScratchRandom, "scratch-random"},
	{RightScratchAny, "scratch-any"},
	{RightRemoveMine, "remove-mine"},
	{RightRemoveRandom, "remove-random"},
	{RightRemoveAny, "remove-any"},
	{RightMoveMine, "move-mine"},
	{RightMoveRandom, "move-random"},
	{RightMoveAny, "move-any"},
	{RightVolume, "volume"},
	{RightAdmin, "admin"},
	{RightRescan, "rescan"},
	{RightRegister, "register"},
	{RightPrefs, "prefs"},
	{RightGlobalPrefs, "global-prefs"},
	{RightUserInfo, "userinfo"},
	{RightRead, "read"},
	{RightLocal, "local"},
}

// Has reports whether r includes every bit in want.
func (r Rights) Has(want Rights) bool { return r&want == want }

// Any reports whether r includes at least one bit of want — the "any bit
// matches" rule spec.md §5 "Rights table" specifies for command checks.
func (r Rights) Any(want Rights) bool { return r&want != 0 }

// String renders r as a comma-separated list of right names, admin-panel
// and `userinfo`-command friendly.
func (r Rights) String() string {
	var names []string
	for _, rn := range rightNames {
		if r.Has(rn.bit) {
			names = append(names, rn.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	out := names[0]
	for _, n := range names[1:] {
		out += "," + n
	}
	return out
}

// ParseRights parses a comma-separated list of right names as produced by
// String, returning an error naming the first unrecognised token.
func ParseRights(s string) (Rights, error) {
	var r Rights
	if s == "" || s == "none" {
		return 0, nil
	}
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			tok := s[start:i]
			start = i + 1
			if tok == "" {
				continue
			}
			found := false
			for _, rn := range rightNames {
				if rn.name == tok {
					r |= rn.bit
					found = true
					break
				}
			}
			if !found {
				return 0, &UnknownRightError{Name: tok}
			}
		}
	}
	return r, nil
}

// UnknownRightError reports a right name ParseRights did not recognise.
type UnknownRightError struct{ Name string }

func (e *UnknownRightError) Error() string { return "unknown right: " + e.Name }

// RightRemovable mirrors spec.md §4.C "Rights enforcement at queue
// boundary": `remove`/`move`/`scratch` consult the -mine/-random/-any
// triad against the entry's submitter and whether it was randomly picked.
func RightRemovable(rights Rights, user string, entrySubmitter string, entryRandom bool, mine, random, any Rights) bool {
	if rights.Any(any) {
		return true
	}
	if entryRandom && rights.Any(random) {
		return true
	}
	if user != "" && user == entrySubmitter && rights.Any(mine) {
		return true
	}
	return false
}
