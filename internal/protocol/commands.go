package protocol

import (
	"errors"
	"fmt"
	"net"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/arung-agamani/disorder/internal/playlist"
	"github.com/arung-agamani/disorder/internal/queue"
	"github.com/arung-agamani/disorder/internal/schedule"
	"github.com/arung-agamani/disorder/internal/users"
)

// --- authentication ---------------------------------------------------

func cmdUser(e *Engine, sess *Session, args []string) (*Result, *Error) {
	if sess.Authenticated {
		return nil, errAuth("connection already authenticated")
	}
	algo := users.HashAlgorithm(e.Live.Get().AuthAlgorithm)
	rights, err := e.Users.Authenticate(algo, args[0], sess.Nonce, args[1])
	if err != nil {
		return nil, mapUsersErr(err)
	}
	sess.Authenticated = true
	sess.User = args[0]
	sess.Rights = rights
	return ok("authenticated"), nil
}

func cmdCookie(e *Engine, sess *Session, args []string) (*Result, *Error) {
	if len(args) == 0 {
		return nil, errArgument("cookie token required")
	}
	user, rights, err := e.Users.AuthenticateCookie(args[0])
	if err != nil {
		return nil, errAuth("%s", err)
	}
	sess.Authenticated = true
	sess.User = user
	sess.Rights = rights
	return ok("authenticated"), nil
}

func cmdMakeCookie(e *Engine, sess *Session, _ []string) (*Result, *Error) {
	token, err := e.Users.IssueCookie(sess.User, sess.Rights)
	if err != nil {
		return nil, errTemporary("%s", err)
	}
	return okString(token), nil
}

// cmdRevoke ends the current connection's authentication. The KeyRing has
// no per-token revocation list (see DESIGN.md), so an already-issued
// cookie remains valid elsewhere until it expires; this only deauthorizes
// this one connection.
func cmdRevoke(_ *Engine, sess *Session, _ []string) (*Result, *Error) {
	sess.Authenticated = false
	sess.User = ""
	sess.Rights = 0
	return ok("revoked"), nil
}

func cmdNop(_ *Engine, _ *Session, _ []string) (*Result, *Error) { return ok(""), nil }

func cmdVersion(e *Engine, _ *Session, _ []string) (*Result, *Error) {
	return okString(e.Version), nil
}

// --- queue mutation -----------------------------------------------------

func cmdPlay(e *Engine, sess *Session, args []string) (*Result, *Error) {
	path, err := e.Library.Resolve(args[0])
	if err != nil {
		return nil, errNotFound("%s", err)
	}
	entry, err := e.Queue.Play(sess.User, path)
	if err != nil {
		return nil, errTemporary("%s", err)
	}
	return okString(entry.ID), nil
}

func cmdPlayAfter(e *Engine, sess *Session, args []string) (*Result, *Error) {
	afterID := args[0]
	var last string
	for _, alias := range args[1:] {
		p, err := e.Library.Resolve(alias)
		if err != nil {
			return nil, errNotFound("%s", err)
		}
		anchor := afterID
		if last != "" {
			anchor = last
		}
		entry, err := e.Queue.PlayAfter(sess.User, anchor, p)
		if err != nil {
			return nil, mapQueueErr(err)
		}
		last = entry.ID
	}
	return ok(last), nil
}

func cmdRemove(e *Engine, sess *Session, args []string) (*Result, *Error) {
	if err := e.Queue.Remove(sess.effectiveRights(), sess.User, args[0]); err != nil {
		return nil, mapQueueErr(err)
	}
	return ok("removed"), nil
}

func cmdScratch(e *Engine, sess *Session, _ []string) (*Result, *Error) {
	if err := e.Queue.Scratch(sess.effectiveRights(), sess.User); err != nil {
		return nil, mapQueueErr(err)
	}
	return ok("scratched"), nil
}

func cmdMove(e *Engine, sess *Session, args []string) (*Result, *Error) {
	delta, err := strconv.Atoi(args[1])
	if err != nil {
		return nil, errArgument("not a number: %s", args[1])
	}
	if err := e.Queue.Move(sess.effectiveRights(), sess.User, args[0], delta); err != nil {
		return nil, mapQueueErr(err)
	}
	return ok("moved"), nil
}

func cmdMoveAfter(e *Engine, sess *Session, args []string) (*Result, *Error) {
	if err := e.Queue.MoveAfter(sess.effectiveRights(), sess.User, args[0], args[1:]); err != nil {
		return nil, mapQueueErr(err)
	}
	return ok("moved"), nil
}

func cmdAdopt(e *Engine, sess *Session, args []string) (*Result, *Error) {
	if err := e.Queue.Adopt(sess.User, args[0]); err != nil {
		return nil, mapQueueErr(err)
	}
	return ok("adopted"), nil
}

// --- queue/history listing ----------------------------------------------

func formatQueueEntry(en *queue.Entry) string {
	return fmt.Sprintf("%s %s %s %s %s", en.ID, en.State, en.Origin,
		quoteToken(en.Submitter), quoteToken(en.Path))
}

func cmdQueue(e *Engine, _ *Session, _ []string) (*Result, *Error) {
	entries := e.Queue.List()
	lines := make([]string, len(entries))
	for i, en := range entries {
		lines[i] = formatQueueEntry(en)
	}
	return okBody(fmt.Sprintf("%d entries", len(lines)), lines), nil
}

func cmdRecent(e *Engine, _ *Session, _ []string) (*Result, *Error) {
	entries := e.Queue.History()
	lines := make([]string, len(entries))
	for i, en := range entries {
		lines[i] = formatQueueEntry(en)
	}
	return okBody(fmt.Sprintf("%d entries", len(lines)), lines), nil
}

func cmdPlaying(e *Engine, _ *Session, _ []string) (*Result, *Error) {
	head, ok2 := e.Queue.Playing()
	if !ok2 {
		return okLiteral("nothing playing"), nil
	}
	return okLiteral(formatQueueEntry(head)), nil
}

func cmdNew(e *Engine, _ *Session, args []string) (*Result, *Error) {
	limit := 20
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, errArgument("not a number: %s", args[0])
		}
		limit = n
	}
	tracks := e.Library.List()
	sort.Slice(tracks, func(i, j int) bool { return tracks[i].Added.After(tracks[j].Added) })
	if len(tracks) > limit {
		tracks = tracks[:limit]
	}
	lines := make([]string, len(tracks))
	for i, t := range tracks {
		lines[i] = quoteToken(t.Path)
	}
	return okBody(fmt.Sprintf("%d tracks", len(lines)), lines), nil
}

// --- transport control ---------------------------------------------------

func cmdPause(e *Engine, _ *Session, _ []string) (*Result, *Error) {
	if err := e.Queue.Pause(); err != nil {
		return nil, mapQueueErr(err)
	}
	return ok("paused"), nil
}

func cmdResume(e *Engine, _ *Session, _ []string) (*Result, *Error) {
	if err := e.Queue.Resume(); err != nil {
		return nil, mapQueueErr(err)
	}
	return ok("resumed"), nil
}

func cmdEnable(e *Engine, _ *Session, _ []string) (*Result, *Error)  { e.Queue.Enable(); return ok("enabled"), nil }
func cmdDisable(e *Engine, _ *Session, _ []string) (*Result, *Error) { e.Queue.Disable(); return ok("disabled"), nil }
func cmdRandomEnable(e *Engine, _ *Session, _ []string) (*Result, *Error) {
	e.Queue.RandomEnable()
	return ok("random enabled"), nil
}
func cmdRandomDisable(e *Engine, _ *Session, _ []string) (*Result, *Error) {
	e.Queue.RandomDisable()
	return ok("random disabled"), nil
}

func cmdVolume(e *Engine, sess *Session, args []string) (*Result, *Error) {
	if len(args) == 0 {
		l, r := e.volume()
		return okLiteral(fmt.Sprintf("%d %d", l, r)), nil
	}
	if !sess.effectiveRights().Any(users.RightVolume) {
		return nil, errRights()
	}
	l, err := strconv.Atoi(args[0])
	if err != nil {
		return nil, errArgument("not a number: %s", args[0])
	}
	r := l
	if len(args) == 2 {
		r, err = strconv.Atoi(args[1])
		if err != nil {
			return nil, errArgument("not a number: %s", args[1])
		}
	}
	e.setVolume(l, r)
	return ok("volume set"), nil
}

// --- track database -------------------------------------------------------

func cmdSearch(e *Engine, _ *Session, args []string) (*Result, *Error) {
	tracks := e.Library.Search(args[0])
	lines := make([]string, len(tracks))
	for i, t := range tracks {
		lines[i] = quoteToken(t.Path)
	}
	return okBody(fmt.Sprintf("%d tracks", len(lines)), lines), nil
}

func normalizeDir(dir string) string {
	dir = path.Clean(dir)
	if dir == "." || dir == "/" {
		return ""
	}
	return strings.Trim(dir, "/")
}

func cmdFiles(e *Engine, _ *Session, args []string) (*Result, *Error) {
	dir := normalizeDir(args[0])
	var out []string
	for _, t := range e.Library.List() {
		if normalizeDir(path.Dir(t.Path)) == dir {
			out = append(out, quoteToken(t.Path))
		}
	}
	sort.Strings(out)
	return okBody(fmt.Sprintf("%d files", len(out)), out), nil
}

func cmdDirs(e *Engine, _ *Session, args []string) (*Result, *Error) {
	dir := normalizeDir(args[0])
	seen := make(map[string]bool)
	for _, t := range e.Library.List() {
		d := normalizeDir(path.Dir(t.Path))
		if !strings.HasPrefix(d, dir) || d == dir {
			continue
		}
		rest := strings.TrimPrefix(strings.TrimPrefix(d, dir), "/")
		if rest == "" {
			continue
		}
		child := strings.SplitN(rest, "/", 2)[0]
		seen[child] = true
	}
	out := make([]string, 0, len(seen))
	for d := range seen {
		out = append(out, quoteToken(d))
	}
	sort.Strings(out)
	return okBody(fmt.Sprintf("%d dirs", len(out)), out), nil
}

func cmdAllFiles(e *Engine, _ *Session, args []string) (*Result, *Error) {
	dir := ""
	if len(args) >= 1 {
		dir = normalizeDir(args[0])
	}
	var out []string
	for _, t := range e.Library.List() {
		if dir == "" || strings.HasPrefix(t.Path, dir+"/") || t.Path == dir {
			out = append(out, quoteToken(t.Path))
		}
	}
	sort.Strings(out)
	return okBody(fmt.Sprintf("%d files", len(out)), out), nil
}

func cmdGet(e *Engine, _ *Session, args []string) (*Result, *Error) {
	v, ok2 := e.Library.GetPref(args[0], args[1])
	if !ok2 {
		if len(args) == 3 {
			return okString(args[2]), nil
		}
		return nil, errNotFound("no such preference: %s", args[1])
	}
	return okString(v), nil
}

func cmdSet(e *Engine, _ *Session, args []string) (*Result, *Error) {
	value := ""
	if len(args) == 3 {
		value = args[2]
	}
	if err := e.Library.SetPref(args[0], args[1], value); err != nil {
		return nil, errNotFound("%s", err)
	}
	return ok("set"), nil
}

func cmdUnset(e *Engine, _ *Session, args []string) (*Result, *Error) {
	if err := e.Library.UnsetPref(args[0], args[1]); err != nil {
		return nil, errNotFound("%s", err)
	}
	return ok("unset"), nil
}

func cmdGetGlobal(e *Engine, _ *Session, args []string) (*Result, *Error) {
	v, ok2 := e.Library.GetGlobalPref(args[0])
	if !ok2 {
		if len(args) == 2 {
			return okString(args[1]), nil
		}
		return nil, errNotFound("no such global preference: %s", args[0])
	}
	return okString(v), nil
}

func cmdSetGlobal(e *Engine, _ *Session, args []string) (*Result, *Error) {
	value := ""
	if len(args) == 2 {
		value = args[1]
	}
	e.Library.SetGlobalPref(args[0], value)
	return ok("set"), nil
}

func cmdUnsetGlobal(e *Engine, _ *Session, args []string) (*Result, *Error) {
	e.Library.UnsetGlobalPref(args[0])
	return ok("unset"), nil
}

// --- accounts --------------------------------------------------------------

func parseRightsArg(s string) (users.Rights, *Error) {
	r, err := users.ParseRights(s)
	if err != nil {
		return 0, errArgument("%s", err)
	}
	return r, nil
}

func cmdAddUser(e *Engine, _ *Session, args []string) (*Result, *Error) {
	if len(args) < 2 {
		return nil, errArgument("adduser requires a username and password")
	}
	rights := users.Rights(e.Live.Get().DefaultRights)
	if len(args) == 3 {
		var errR *Error
		rights, errR = parseRightsArg(args[2])
		if errR != nil {
			return nil, errR
		}
	}
	if err := e.Users.AddUser(args[0], args[1], "", rights); err != nil {
		return nil, mapUsersErr(err)
	}
	return ok("user added"), nil
}

func cmdDelUser(e *Engine, _ *Session, args []string) (*Result, *Error) {
	if err := e.Users.DelUser(args[0]); err != nil {
		return nil, mapUsersErr(err)
	}
	return ok("user deleted"), nil
}

func cmdEditUser(e *Engine, _ *Session, args []string) (*Result, *Error) {
	if len(args) < 2 {
		return nil, errArgument("edituser requires a property name")
	}
	value := ""
	if len(args) == 3 {
		value = args[2]
	}
	var rights users.Rights
	switch args[1] {
	case "email":
	case "rights":
		r, errR := parseRightsArg(value)
		if errR != nil {
			return nil, errR
		}
		rights = r
	default:
		return nil, errArgument("unknown user property: %s", args[1])
	}
	err := e.Users.Edit(args[0], func(u *users.User) {
		switch args[1] {
		case "email":
			u.Email = value
		case "rights":
			u.Rights = rights
		}
	})
	if err != nil {
		return nil, mapUsersErr(err)
	}
	return ok("user edited"), nil
}

func cmdRegister(e *Engine, _ *Session, args []string) (*Result, *Error) {
	if len(args) < 2 {
		return nil, errArgument("register requires a username and password")
	}
	email := ""
	if len(args) == 3 {
		email = args[2]
	}
	rights := users.Rights(e.Live.Get().DefaultRights)
	token, err := e.Users.Register(args[0], args[1], email, rights)
	if err != nil {
		return nil, mapUsersErr(err)
	}
	if e.Mail != nil && email != "" {
		confirmString := args[0] + "/" + token
		if err := e.Mail.SendConfirmation(email, args[0], confirmString); err != nil {
			return nil, errTemporary("could not send confirmation mail: %s", err)
		}
	}
	return ok("registered, check your mail to confirm"), nil
}

func cmdConfirm(e *Engine, _ *Session, args []string) (*Result, *Error) {
	parts := strings.SplitN(args[0], "/", 2)
	if len(parts) != 2 {
		return nil, errArgument("malformed confirmation string")
	}
	if err := e.Users.Confirm(parts[0], parts[1]); err != nil {
		return nil, mapUsersErr(err)
	}
	return ok("confirmed"), nil
}

func cmdReminder(e *Engine, _ *Session, args []string) (*Result, *Error) {
	u, ok2 := e.Users.Lookup(args[0])
	if !ok2 {
		return nil, errNotFound("no such user: %s", args[0])
	}
	interval := e.Live.Get().ReminderInterval
	if interval > 0 && !u.LastReminder.IsZero() && time.Since(u.LastReminder) < interval {
		return nil, errTemporary("reminder already sent recently")
	}
	token, email, err := e.Users.Reminder(args[0], time.Now())
	if err != nil {
		return nil, mapUsersErr(err)
	}
	if e.Mail != nil && email != "" {
		if err := e.Mail.SendReminder(email, args[0], token); err != nil {
			return nil, errTemporary("could not send reminder mail: %s", err)
		}
	}
	return ok("reminder sent"), nil
}

// --- streaming log -----------------------------------------------------------

// cmdLog marks sess as subscribed; internal/server is responsible for
// actually registering a logSubscriber with e.Hub once it sees
// sess.LogSubscribed flip (spec.md §4.D "Streaming log").
func cmdLog(_ *Engine, sess *Session, _ []string) (*Result, *Error) {
	sess.LogSubscribed = true
	return &Result{Code: 254, Message: "log follows"}, nil
}

// --- RTP -----------------------------------------------------------------

func cmdRTPAddress(e *Engine, _ *Session, _ []string) (*Result, *Error) {
	host, port := e.RTP.ReportAddress()
	return okLiteral(fmt.Sprintf("%s %s", host, port)), nil
}

func cmdRTPRequest(e *Engine, sess *Session, args []string) (*Result, *Error) {
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(args[0], args[1]))
	if err != nil {
		return nil, errArgument("%s", err)
	}
	if err := e.RTP.Register(sess.Tag, addr); err != nil {
		return nil, errDisabled("rtp-request")
	}
	return ok("requested"), nil
}

func cmdRTPCancel(e *Engine, sess *Session, _ []string) (*Result, *Error) {
	e.RTP.Unregister(sess.Tag)
	return ok("cancelled"), nil
}

// --- scheduled actions --------------------------------------------------

func parseKind(s string) (schedule.Kind, *Error) {
	switch schedule.Kind(s) {
	case schedule.KindEnable, schedule.KindDisable, schedule.KindVolume, schedule.KindPlay:
		return schedule.Kind(s), nil
	default:
		return "", errArgument("unknown scheduled action kind: %s", s)
	}
}

func cmdScheduleAdd(e *Engine, sess *Session, args []string) (*Result, *Error) {
	if len(args) < 2 {
		return nil, errArgument("schedule-add requires an action kind and a time")
	}
	kind, errK := parseKind(args[0])
	if errK != nil {
		return nil, errK
	}
	epoch, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return nil, errArgument("not a timestamp: %s", args[1])
	}
	daily := false
	actionArgs := args[2:]
	if len(actionArgs) > 0 && (actionArgs[0] == "daily" || actionArgs[0] == "once") {
		daily = actionArgs[0] == "daily"
		actionArgs = actionArgs[1:]
	}
	a := e.Schedule.Add(sess.User, kind, actionArgs, time.Unix(epoch, 0), daily)
	if e.Scheduler != nil {
		e.Scheduler.Arm(a)
	}
	return okString(a.ID), nil
}

func cmdScheduleDel(e *Engine, sess *Session, args []string) (*Result, *Error) {
	isAdmin := sess.effectiveRights().Has(users.RightAdmin)
	if err := e.Schedule.Del(args[0], sess.User, isAdmin); err != nil {
		return nil, mapScheduleErr(err)
	}
	if e.Scheduler != nil {
		e.Scheduler.Disarm(args[0])
	}
	return ok("removed"), nil
}

func formatAction(a *schedule.Action) string {
	daily := "once"
	if a.Daily {
		daily = "daily"
	}
	fields := []string{a.ID, string(a.Kind), fmt.Sprintf("%d", a.At.Unix()), daily, quoteToken(a.User)}
	for _, arg := range a.Args {
		fields = append(fields, quoteToken(arg))
	}
	return strings.Join(fields, " ")
}

func cmdScheduleGet(e *Engine, _ *Session, args []string) (*Result, *Error) {
	a, err := e.Schedule.Get(args[0])
	if err != nil {
		return nil, mapScheduleErr(err)
	}
	return okLiteral(formatAction(a)), nil
}

func cmdScheduleList(e *Engine, sess *Session, _ []string) (*Result, *Error) {
	all := sess.effectiveRights().Has(users.RightAdmin)
	actions := e.Schedule.List(sess.User, all)
	lines := make([]string, len(actions))
	for i, a := range actions {
		lines[i] = formatAction(a)
	}
	return okBody(fmt.Sprintf("%d actions", len(lines)), lines), nil
}

// --- playlists -----------------------------------------------------------

func cmdPlaylistLock(e *Engine, sess *Session, args []string) (*Result, *Error) {
	if err := e.Playlists.Lock(args[0], sess.Tag, time.Now()); err != nil {
		return nil, mapPlaylistErr(err)
	}
	return ok("locked"), nil
}

func cmdPlaylistUnlock(e *Engine, sess *Session, args []string) (*Result, *Error) {
	if len(args) == 1 {
		e.Playlists.Unlock(args[0], sess.Tag)
	} else {
		e.Playlists.UnlockAll(sess.Tag)
	}
	return ok("unlocked"), nil
}

// cmdPlaylistSet acknowledges the body-introducing form of playlist-set
// (spec.md §4.D "Command body intake"): the track list itself arrives as
// a dot-stuffed body on the lines following this reply.
func cmdPlaylistSet(e *Engine, sess *Session, args []string) (*Result, *Error) {
	name := args[0]
	if _, locked := e.Playlists.LockedBy(name, time.Now()); !locked {
		return nil, errPlaylistLocked("nobody")
	}
	sess.body = &bodyContinuation{
		finish: func(e *Engine, sess *Session, lines []string) (*Result, *Error) {
			shared := strings.HasPrefix(name, "shared-")
			if err := e.Playlists.Set(name, sess.Tag, sess.User, shared, lines, time.Now()); err != nil {
				return nil, mapPlaylistErr(err)
			}
			return ok("playlist updated"), nil
		},
	}
	return &Result{Code: 354, Message: "send track list, terminated by '.'"}, nil
}

func cmdPlaylistGet(e *Engine, _ *Session, args []string) (*Result, *Error) {
	p, err := e.Playlists.Get(args[0])
	if err != nil {
		return nil, mapPlaylistErr(err)
	}
	lines := make([]string, len(p.Tracks))
	for i, t := range p.Tracks {
		lines[i] = quoteToken(t)
	}
	return okBody(fmt.Sprintf("%d tracks", len(lines)), lines), nil
}

func cmdPlaylistDelete(e *Engine, sess *Session, args []string) (*Result, *Error) {
	p, err := e.Playlists.Get(args[0])
	if err != nil {
		return nil, mapPlaylistErr(err)
	}
	if p.Owner != "" && p.Owner != sess.User && !sess.effectiveRights().Has(users.RightAdmin) {
		return nil, errRights()
	}
	if err := e.Playlists.Delete(args[0]); err != nil {
		return nil, mapPlaylistErr(err)
	}
	return ok("deleted"), nil
}

func cmdPlaylistList(e *Engine, sess *Session, _ []string) (*Result, *Error) {
	names := e.Playlists.List(sess.User)
	sort.Strings(names)
	lines := make([]string, len(names))
	for i, n := range names {
		lines[i] = quoteToken(n)
	}
	return okBody(fmt.Sprintf("%d playlists", len(lines)), lines), nil
}

// --- library / server maintenance ---------------------------------------

func cmdRescan(e *Engine, _ *Session, _ []string) (*Result, *Error) {
	added, removed, err := e.Queue.Rescan()
	if err != nil {
		return nil, errTemporary("%s", err)
	}
	return okLiteral(fmt.Sprintf("%d added, %d removed", added, removed)), nil
}

func cmdStats(e *Engine, _ *Session, _ []string) (*Result, *Error) {
	lines := []string{
		fmt.Sprintf("tracks %d", e.Library.Count()),
		fmt.Sprintf("queue_length %d", len(e.Queue.List())),
		fmt.Sprintf("recent_length %d", len(e.Queue.History())),
	}
	return okBody("stats", lines), nil
}

// --- error mapping ---------------------------------------------------------

func mapQueueErr(err error) *Error {
	switch {
	case errors.Is(err, queue.ErrNotFound):
		return errNotFound("%s", err)
	case errors.Is(err, queue.ErrNothingPlaying):
		return errTemporary("%s", err)
	case errors.Is(err, queue.ErrNotRemovable):
		return errRights()
	case errors.Is(err, queue.ErrNotAdoptable):
		return errArgument("%s", err)
	case errors.Is(err, queue.ErrInvalidPosition):
		return errArgument("%s", err)
	default:
		return errTemporary("%s", err)
	}
}

func mapUsersErr(err error) *Error {
	switch {
	case errors.Is(err, users.ErrUnknownUser):
		return errNotFound("%s", err)
	case errors.Is(err, users.ErrUserExists):
		return errArgument("%s", err)
	case errors.Is(err, users.ErrBadCredentials), errors.Is(err, users.ErrNotConfirmed),
		errors.Is(err, users.ErrBadConfirmation), errors.Is(err, users.ErrAlreadyAuthed):
		return errAuth("%s", err)
	default:
		return errTemporary("%s", err)
	}
}

func mapPlaylistErr(err error) *Error {
	switch {
	case errors.Is(err, playlist.ErrNotFound):
		return errNotFound("%s", err)
	case errors.Is(err, playlist.ErrLocked):
		return errPlaylistLocked("another connection")
	case errors.Is(err, playlist.ErrTooLarge):
		return errArgument("%s", err)
	default:
		return errTemporary("%s", err)
	}
}

func mapScheduleErr(err error) *Error {
	switch {
	case errors.Is(err, schedule.ErrNotFound):
		return errNotFound("%s", err)
	case errors.Is(err, schedule.ErrForbidden):
		return errRights()
	default:
		return errTemporary("%s", err)
	}
}
