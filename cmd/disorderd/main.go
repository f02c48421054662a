// Command disorderd runs the DisOrder network jukebox server: it wires the
// track database, queue engine, decoder pool, RTP sender, user database,
// saved playlists, scheduled actions, and the protocol engine together onto
// one reactor, then listens for client connections until told to stop.
package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/arung-agamani/disorder/internal/config"
	"github.com/arung-agamani/disorder/internal/decoder"
	"github.com/arung-agamani/disorder/internal/library"
	"github.com/arung-agamani/disorder/internal/mail"
	"github.com/arung-agamani/disorder/internal/playlist"
	"github.com/arung-agamani/disorder/internal/protocol"
	"github.com/arung-agamani/disorder/internal/queue"
	"github.com/arung-agamani/disorder/internal/reactor"
	"github.com/arung-agamani/disorder/internal/rtpsender"
	"github.com/arung-agamani/disorder/internal/schedule"
	"github.com/arung-agamani/disorder/internal/server"
	"github.com/arung-agamani/disorder/internal/status"
	"github.com/arung-agamani/disorder/internal/users"
)

const protocolVersion = "disorder 2.0"

func main() {
	boot := config.Load()

	home := flag.String("home", boot.Home, "base directory for the journal, user database, and saved playlists")
	root := flag.String("root", boot.Root, "track library root directory")
	configFile := flag.String("config", boot.ConfigFile, "path to the disorder configuration file")
	listen := flag.String("listen", boot.Listen, "unprivileged TCP listen address")
	statusListen := flag.String("status-listen", boot.StatusListen, "address for the read-only HTTP status endpoint (empty disables it)")
	logLevel := flag.String("log-level", boot.LogLevel, "log level: debug, info, warn, error")
	foreground := flag.Bool("foreground", boot.Foreground, "stay attached to the controlling terminal")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(*logLevel)}))
	slog.SetDefault(logger)

	if !*foreground {
		slog.Info("foreground flag ignored: daemonizing is left to the process supervisor")
	}

	if err := os.MkdirAll(*home, 0o755); err != nil {
		slog.Error("create home directory", "home", *home, "error", err)
		os.Exit(1)
	}

	snap := config.Default()
	if _, statErr := os.Stat(*configFile); statErr == nil {
		loaded, err := config.LoadFile(*configFile)
		if err != nil {
			slog.Error("load configuration", "path", *configFile, "error", err)
			os.Exit(1)
		}
		snap = loaded
	}
	if *listen != "" {
		snap.Listen = *listen
	}
	live := config.NewLive(snap)

	slog.Info("starting disorder",
		"home", *home, "root", *root, "listen", snap.Listen, "rtp_mode", snap.RTPMode)

	r := reactor.New(logger)

	lib, libStore := openLibrary(*root, *home, logger)
	userMgr, userStore := openUsers(*home, snap, logger)
	pl, plStore := openPlaylists(*home, snap, logger)
	sched, schedStore := openSchedule(*home, logger)

	journal, err := queue.NewJournal(filepath.Join(*home, "queue.journal"))
	if err != nil {
		slog.Error("open queue journal", "error", err)
		os.Exit(1)
	}

	hub := protocol.NewHub()

	dest, err := rtpsender.NewDestinations(snap.RTPMode, snap.Broadcast)
	if err != nil {
		slog.Error("configure rtp destinations", "error", err)
		os.Exit(1)
	}
	udpConn, err := rtpsender.NewConn(snap.RTPMode, snap.MulticastTTL, snap.MulticastLoop)
	if err != nil {
		slog.Error("bind rtp socket", "error", err)
		os.Exit(1)
	}
	sender := rtpsender.New(r, udpConn, dest, rtpsender.StereoConfig(snap.RTPMaxPayload), logger)

	// queue.New needs a Decoder before the decoder.Manager that implements
	// it can exist (decoder.New needs the queue.Engine as its Notifier).
	// decoderHandle breaks that cycle: queue only calls Launch/Abandon
	// once ensure() runs, which never happens before m is assigned below.
	decoderHandle := &decoderProxy{}
	qcfg := queue.Config{
		QueuePad:   snap.QueuePad,
		HistoryMax: snap.History,
		Random: library.RandomConfig{
			ReplayMin:  snap.ReplayMin,
			NewBiasAge: snap.NewBiasAge,
			NewBias:    snap.NewBias,
			NewMax:     snap.NewMax,
		},
		Scratches: snap.Scratches,
	}
	q := queue.New(qcfg, lib, decoderHandle, queue.NewIDAllocator(), journal, hub.Publish)
	if journal.Exists() {
		qlist, qhist, err := journal.Load()
		if err != nil {
			slog.Error("load queue journal", "error", err)
		} else {
			q.Restore(qlist, qhist)
		}
	}

	decMgr := decoder.New(r, q, sender.Feed, logger)
	decoderHandle.m = decMgr

	ml := mail.New(mail.Config{Sender: snap.MailSender, SMTPServer: snap.SMTPServer})

	engine := protocol.NewEngine(q, userMgr, lib, pl, sched, dest, ml, live, hub, protocolVersion)
	engine.Scheduler = protocol.NewScheduler(r, engine, func() {
		if err := schedStore.Save(sched); err != nil {
			slog.Error("save schedule", "error", err)
		}
	})
	engine.Scheduler.ArmAll()

	srv := server.New(r, engine, logger)
	if err := srv.ListenTCP(snap.Listen); err != nil {
		slog.Error("listen tcp", "error", err)
		os.Exit(1)
	}
	if boot.UnixSocket != "" {
		if err := srv.ListenUnix(boot.UnixSocket, false); err != nil {
			slog.Error("listen unix", "error", err)
			os.Exit(1)
		}
	}
	if boot.PrivUnixSocket != "" {
		if err := srv.ListenUnix(boot.PrivUnixSocket, true); err != nil {
			slog.Error("listen unix privileged", "error", err)
			os.Exit(1)
		}
	}

	var statusSrv *status.Server
	if *statusListen != "" {
		statusSrv = status.New(r, q, logger)
		go func() {
			if err := statusSrv.ListenAndServe(*statusListen); err != nil {
				slog.Error("status endpoint", "error", err)
			}
		}()
		slog.Info("status endpoint listening", "addr", *statusListen)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigs := r.Watch(os.Interrupt, syscall.SIGTERM)
	sigs.Dispatch(func(os.Signal) {
		slog.Info("shutdown signal received")
		srv.Close()
		if statusSrv != nil {
			if err := statusSrv.Close(); err != nil {
				slog.Warn("status endpoint shutdown", "error", err)
			}
		}
		q.Shutdown()
		cancel()
	})

	// Drive the selection/prepare-ahead algorithm once a second, the
	// reactor-native replacement for a blocking poll loop's periodic
	// timeout (spec.md §4.C "Inputs: ... periodic tick").
	var tick func()
	tick = func() { q.Tick(); r.After(time.Second, tick) }
	r.After(time.Second, tick)

	r.Run(ctx)
	_ = signal.Ignore // acknowledge os/signal is used only via reactor.Watch above

	slog.Info("saving state before exit")
	if err := libStore.Save(lib); err != nil {
		slog.Error("save library", "error", err)
	}
	if err := userStore.Save(userMgr); err != nil {
		slog.Error("save users", "error", err)
	}
	if err := plStore.Save(pl); err != nil {
		slog.Error("save playlists", "error", err)
	}
	if err := schedStore.Save(sched); err != nil {
		slog.Error("save schedule", "error", err)
	}
	slog.Info("disorder stopped")
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// decoderProxy forwards queue.Decoder calls to a decoder.Manager assigned
// after construction, breaking the queue/decoder constructor cycle (queue
// needs a Decoder to exist; decoder.New needs the queue.Engine as its
// Notifier).
type decoderProxy struct{ m *decoder.Manager }

func (p *decoderProxy) Launch(id, path string, sofarBytes int64) error {
	return p.m.Launch(id, path, sofarBytes)
}
func (p *decoderProxy) Abandon(id string) { p.m.Abandon(id) }

func openLibrary(root, home string, log *slog.Logger) (*library.Library, *library.Store) {
	store, err := library.NewStore(filepath.Join(home, "library.json"))
	if err != nil {
		log.Error("open library store", "error", err)
		os.Exit(1)
	}
	if store.Exists() {
		lib, err := store.Load()
		if err != nil {
			log.Error("load library", "error", err)
			os.Exit(1)
		}
		return lib, store
	}
	lib := library.New(root)
	added, removed, err := lib.Rescan(time.Now())
	if err != nil {
		log.Warn("initial library scan failed", "root", root, "error", err)
	} else {
		log.Info("scanned library", "root", root, "added", added, "removed", removed)
	}
	return lib, store
}

func openUsers(home string, snap *config.Snapshot, log *slog.Logger) (*users.Manager, *users.Store) {
	store, err := users.NewStore(filepath.Join(home, "users.json"))
	if err != nil {
		log.Error("open user store", "error", err)
		os.Exit(1)
	}
	sealKey, err := loadOrCreateSealKey(filepath.Join(home, "seal.key"))
	if err != nil {
		log.Error("load seal key", "error", err)
		os.Exit(1)
	}
	keys, err := users.NewKeyRing(snap.CookieKeyTTL)
	if err != nil {
		log.Error("create cookie key ring", "error", err)
		os.Exit(1)
	}
	mgr := users.NewManager(sealKey, keys, snap.CookieLoginTTL)
	if store.Exists() {
		if err := store.Load(mgr); err != nil {
			log.Error("load users", "error", err)
			os.Exit(1)
		}
	}
	return mgr, store
}

func openPlaylists(home string, snap *config.Snapshot, log *slog.Logger) (*playlist.Manager, *playlist.Store) {
	store, err := playlist.NewStore(filepath.Join(home, "playlists.json"))
	if err != nil {
		log.Error("open playlist store", "error", err)
		os.Exit(1)
	}
	mgr := playlist.New(snap.PlaylistMax, snap.PlaylistLockTTL)
	if store.Exists() {
		if err := store.Load(mgr); err != nil {
			log.Error("load playlists", "error", err)
			os.Exit(1)
		}
	}
	return mgr, store
}

// loadOrCreateSealKey reads the 32-byte key users.Manager uses to seal
// stored passwords, generating and persisting a fresh random one on first
// boot so passwords sealed before a restart can still be unsealed afterwards.
func loadOrCreateSealKey(path string) ([32]byte, error) {
	var key [32]byte
	data, err := os.ReadFile(path)
	if err == nil && len(data) == len(key) {
		copy(key[:], data)
		return key, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return key, fmt.Errorf("read seal key %q: %w", path, err)
	}
	if _, err := rand.Read(key[:]); err != nil {
		return key, fmt.Errorf("generate seal key: %w", err)
	}
	if err := os.WriteFile(path, key[:], 0o600); err != nil {
		return key, fmt.Errorf("write seal key %q: %w", path, err)
	}
	return key, nil
}

func openSchedule(home string, log *slog.Logger) (*schedule.Manager, *schedule.Store) {
	store, err := schedule.NewStore(filepath.Join(home, "schedule.json"))
	if err != nil {
		log.Error("open schedule store", "error", err)
		os.Exit(1)
	}
	mgr := schedule.New()
	if store.Exists() {
		if err := store.Load(mgr); err != nil {
			log.Error("load schedule", "error", err)
			os.Exit(1)
		}
	}
	return mgr, store
}
