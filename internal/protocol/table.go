package protocol

import "github.com/arung-agamani/disorder/internal/users"

// noAuthRequired lists the commands spec.md §5 "Rights table" says are
// callable without having authenticated at all.
var noAuthRequired = map[string]bool{
	"user":    true,
	"cookie":  true,
	"version": true,
	"confirm": true,
	"nop":     true,
}

// command describes one protocol verb's argument arity and required
// rights, consulted by Engine.Dispatch before the handler ever runs
// (spec.md §5 "Rights are checked after arg count").
type command struct {
	minArgs int
	maxArgs int // -1 means unbounded
	rights  users.Rights
	handler handlerFunc
}

// handlerFunc implements one command's behaviour. args excludes the verb
// itself. Returning a *Error aborts the command with that response;
// returning a non-error Result supplies the success reply.
type handlerFunc func(e *Engine, sess *Session, args []string) (*Result, *Error)

// table is built in init() (below) once all handler functions exist;
// split across this file and commands.go so the rights/arity data stays
// next to the literal protocol reference table in spec.md §6, and the
// handler logic lives with the subsystem it drives.
var table map[string]*command

func init() {
	table = map[string]*command{
		"user":             {2, 2, 0, cmdUser},
		"cookie":           {0, 1, 0, cmdCookie},
		"make-cookie":      {0, 0, users.RightRead, cmdMakeCookie},
		"revoke":           {0, 0, users.RightRead, cmdRevoke},
		"nop":              {0, 0, 0, cmdNop},
		"version":          {0, 0, 0, cmdVersion},

		"play":       {1, 1, users.RightPlay, cmdPlay},
		"playafter":  {2, -1, users.RightPlay, cmdPlayAfter},
		"remove":     {1, 1, users.RightRemoveMine | users.RightRemoveRandom | users.RightRemoveAny, cmdRemove},
		"scratch":    {0, 1, users.RightScratchMine | users.RightScratchRandom | users.RightScratchAny, cmdScratch},
		"move":       {2, 2, users.RightMoveMine | users.RightMoveRandom | users.RightMoveAny, cmdMove},
		"moveafter":  {1, -1, users.RightMoveMine | users.RightMoveRandom | users.RightMoveAny, cmdMoveAfter},
		"adopt":      {1, 1, users.RightPlay, cmdAdopt},

		"queue":   {0, 0, users.RightRead, cmdQueue},
		"recent":  {0, 0, users.RightRead, cmdRecent},
		"playing": {0, 0, users.RightRead, cmdPlaying},
		"new":     {0, 1, users.RightRead, cmdNew},

		"pause":  {0, 0, users.RightPause, cmdPause},
		"resume": {0, 0, users.RightPause, cmdResume},

		"enable":          {0, 1, users.RightGlobalPrefs, cmdEnable},
		"disable":         {0, 1, users.RightGlobalPrefs, cmdDisable},
		"random-enable":   {0, 1, users.RightGlobalPrefs, cmdRandomEnable},
		"random-disable":  {0, 1, users.RightGlobalPrefs, cmdRandomDisable},

		"volume": {0, 2, users.RightRead, cmdVolume},

		"search":   {1, 2, users.RightRead, cmdSearch},
		"files":    {1, 2, users.RightRead, cmdFiles},
		"dirs":     {1, 2, users.RightRead, cmdDirs},
		"allfiles": {1, 2, users.RightRead, cmdAllFiles},

		"get":    {2, 3, users.RightRead, cmdGet},
		"set":    {2, 3, users.RightPrefs, cmdSet},
		"unset":  {2, 3, users.RightPrefs, cmdUnset},

		"get-global":   {1, 2, users.RightRead, cmdGetGlobal},
		"set-global":   {1, 2, users.RightGlobalPrefs, cmdSetGlobal},
		"unset-global": {1, 2, users.RightGlobalPrefs, cmdUnsetGlobal},

		"adduser":  {1, 3, users.RightAdmin, cmdAddUser},
		"deluser":  {1, 1, users.RightAdmin, cmdDelUser},
		"edituser": {1, 3, users.RightAdmin, cmdEditUser},
		"register": {1, 3, users.RightRegister, cmdRegister},
		"confirm":  {1, 1, 0, cmdConfirm},
		"reminder": {1, 1, users.RightLocal, cmdReminder},

		"log": {0, 0, users.RightRead, cmdLog},

		"rtp-address": {0, 2, 0, cmdRTPAddress},
		"rtp-request": {2, 2, users.RightRead, cmdRTPRequest},
		"rtp-cancel":  {0, 0, 0, cmdRTPCancel},

		"schedule-add":  {0, -1, users.RightRead, cmdScheduleAdd},
		"schedule-del":  {1, 1, users.RightRead, cmdScheduleDel},
		"schedule-get":  {1, 1, users.RightRead, cmdScheduleGet},
		"schedule-list": {0, 0, users.RightRead, cmdScheduleList},

		"playlist-lock":   {1, 1, users.RightPlay, cmdPlaylistLock},
		"playlist-unlock": {0, 1, users.RightPlay, cmdPlaylistUnlock},
		"playlist-set":    {1, 1, users.RightPlay, cmdPlaylistSet},
		"playlist-get":    {1, 1, users.RightRead, cmdPlaylistGet},
		"playlist-delete": {1, 1, users.RightPlay, cmdPlaylistDelete},
		"playlist-list":   {0, 2, users.RightRead, cmdPlaylistList},

		"rescan": {0, 0, users.RightRescan, cmdRescan},
		"stats":  {0, 0, users.RightRead, cmdStats},
	}
}
