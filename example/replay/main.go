package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/df-mc/dragonfly/server/block"
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/oomph-ac/oflight"
	"github.com/oomph-ac/oflight/detection"
	"github.com/oomph-ac/oflight/game"
	"github.com/oomph-ac/oflight/settings"
	"github.com/oomph-ac/oflight/sink"
	"github.com/oomph-ac/oflight/terrain"
	"github.com/oomph-ac/oflight/world"
	"github.com/sandertv/gophertunnel/minecraft/protocol"
	"github.com/sandertv/gophertunnel/minecraft/text"
)

const groundY = 64

// The following program replays scripted movement, both legitimate and cheating, through a tracker and
// prints what it detects.
// Usage: ./replay [settings.toml|settings.yml] [violations.sqlite]
func main() {
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if os.Getenv("PPROF_ENABLED") != "" {
		viewer.SetConfiguration(viewer.WithTheme(viewer.ThemeWesteros), viewer.WithAddr("localhost:8080"))
		mgr := statsview.New()
		go mgr.Start()
	}

	s := settings.DefaultSettings()
	if len(os.Args) > 1 {
		if _, err := os.Stat(os.Args[1]); os.IsNotExist(err) {
			if err := settings.SaveDefault(os.Args[1]); err != nil {
				log.Error("unable to create settings", "path", os.Args[1], "err", err)
				os.Exit(1)
			}
		}
		loaded, err := settings.Load(os.Args[1])
		if err != nil {
			log.Error("unable to load settings", "path", os.Args[1], "err", err)
			os.Exit(1)
		}
		s = loaded
	}
	provider, err := settings.NewReloadable(s)
	if err != nil {
		log.Error("invalid settings", "err", err)
		os.Exit(1)
	}

	dbPath := filepath.Join(os.TempDir(), "oflight", "violations.sqlite")
	if len(os.Args) > 2 {
		dbPath = os.Args[2]
	}
	recorder, err := sink.OpenRecorder(dbPath, log)
	if err != nil {
		log.Error("unable to open recorder", "path", dbPath, "err", err)
		os.Exit(1)
	}
	defer recorder.Close()

	names := make(map[uuid.UUID]string)
	name := func(id uuid.UUID) string { return names[id] }
	sinks := sink.Multi{
		sink.NewLog(log),
		sink.NewAlert(func(msg string) { fmt.Println(text.Clean(msg)) }, name),
		sink.NewAggregator(provider, func(id uuid.UUID, f detection.Family, vl float64) {
			fmt.Printf("%s would be removed for %s (x%.2f)\n", name(id), f, vl)
		}, log),
		recorder,
	}

	w := buildWorld(log)
	tr, err := oflight.New(oflight.Config{
		Terrain:  terrain.NewWorldClassifier(w, log),
		Settings: provider,
		Sink:     sinks,
		Workers:  4,
		Log:      log,
	})
	if err != nil {
		log.Error("unable to create tracker", "err", err)
		os.Exit(1)
	}

	scripts := map[string][]detection.Sample{
		"Jumper":   jump(mgl64.Vec3{8.5, groundY, 8.5}, false),
		"Booster":  jump(mgl64.Vec3{9.5, groundY, 8.5}, true),
		"Climber":  climb(mgl64.Vec3{0.5, groundY, 0.5}, s.Thresholds.AscendLadder, 16),
		"Flyer":    fly(mgl64.Vec3{10.5, groundY, 10.5}),
		"Glider":   glide(mgl64.Vec3{11.5, groundY + 20, 11.5}),
		"Clipper":  clip(mgl64.Vec3{4.5, groundY, 4.5}),
		"Laddered": climb(mgl64.Vec3{0.5, groundY, 0.5}, 1.5, 2),
		"Walker":   walkOnWater(mgl64.Vec3{6.5, groundY - 0.2, 6.5}),
	}
	ids := make(map[string]uuid.UUID, len(scripts))
	for n := range scripts {
		id := uuid.New()
		ids[n], names[id] = id, n
	}

	for n, samples := range scripts {
		for _, sample := range samples {
			tr.Dispatch(ids[n], sample)
		}
		tr.Disconnect(ids[n])
	}
	tr.Close()

	log.Info("replay finished", "rejected", tr.Rejected(), "faults", tr.Faults(), "dropped", recorder.Dropped(), "db", dbPath)
}

// buildWorld builds a ladder shaft at 0,0, a roof at 4,4 and a pool at 6,6 on a stone floor.
func buildWorld(log *slog.Logger) *world.World {
	w := world.New(log)
	w.AddChunk(protocol.ChunkPos{0, 0})
	for x := 0; x < 16; x++ {
		for z := 0; z < 16; z++ {
			w.SetBlock(cube.Pos{x, groundY - 1, z}, block.Stone{})
		}
	}
	for y := groundY; y < groundY+16; y++ {
		w.SetBlock(cube.Pos{0, y, 0}, block.Ladder{Facing: cube.South})
	}
	for y := groundY + 2; y < groundY+6; y++ {
		w.SetBlock(cube.Pos{4, y, 4}, block.Stone{})
	}
	w.SetBlock(cube.Pos{6, groundY - 1, 6}, block.Water{Still: true, Depth: 8})
	return w
}

// move returns a sample from pos moved by speed on the Y axis.
func move(tick int64, pos mgl64.Vec3, speed float64, onGround bool) detection.Sample {
	return detection.Sample{
		Tick:           tick,
		From:           pos,
		To:             pos.Add(mgl64.Vec3{0, speed, 0}),
		OnGround:       onGround,
		ClientOnGround: onGround,
	}
}

func jump(pos mgl64.Vec3, boost bool) []detection.Sample {
	v := game.DefaultJumpMotion
	if boost {
		v += game.JumpBoostBonus / 2
	}

	var samples []detection.Sample
	for tick := int64(1); tick < 40; tick++ {
		s := move(tick, pos, v, false)
		s.JumpBoost = boost
		if s.To.Y() <= groundY {
			s.To[1], s.OnGround, s.ClientOnGround = groundY, true, true
			samples = append(samples, s)
			break
		}
		samples = append(samples, s)
		pos, v = s.To, (v-game.NormalGravity)*0.98
	}
	return samples
}

func climb(pos mgl64.Vec3, speed float64, ticks int) []detection.Sample {
	samples := make([]detection.Sample, 0, ticks)
	for tick := int64(1); tick <= int64(ticks); tick++ {
		s := move(tick, pos, speed, tick == 1)
		samples, pos = append(samples, s), s.To
	}
	return samples
}

func fly(pos mgl64.Vec3) []detection.Sample {
	var samples []detection.Sample
	for tick := int64(1); tick <= 30; tick++ {
		speed := 0.6
		if tick > 10 {
			speed = 0
		}
		s := move(tick, pos, speed, false)
		samples, pos = append(samples, s), s.To
	}
	return samples
}

func glide(pos mgl64.Vec3) []detection.Sample {
	var samples []detection.Sample
	for tick := int64(1); tick <= 60 && pos.Y() > groundY+0.2; tick++ {
		s := move(tick, pos, -0.2, false)
		samples, pos = append(samples, s), s.To
	}
	return samples
}

func clip(pos mgl64.Vec3) []detection.Sample {
	return []detection.Sample{
		move(1, pos, 0, true),
		move(2, pos, 7, false),
	}
}

func walkOnWater(pos mgl64.Vec3) []detection.Sample {
	var samples []detection.Sample
	for tick := int64(1); tick <= 10; tick++ {
		s := move(tick, pos, 0.05, false)
		s.ClientOnGround = true
		samples = append(samples, s)
	}
	return samples
}
