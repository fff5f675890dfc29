package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/playmatatu/beerpong/internal/config"
	"github.com/playmatatu/beerpong/internal/game"
	"go.uber.org/zap"
)

const (
	aimStep     = 0.05
	maxMessages = 8
)

// viewer is a terminal side view of one arena: Z runs left to right, Y up.
// It is both the preview sink and the episode observer of its controller.
type viewer struct {
	screen tcell.Screen
	env    *game.Environment
	action game.Action

	preview  []game.Vec3
	visible  bool
	messages []string

	width, height int
	minZ, maxZ    float64
	minY, maxY    float64
}

func (v *viewer) SetVisible(visible bool) { v.visible = visible }
func (v *viewer) Draw(points []game.Vec3) { v.preview = points }

func (v *viewer) EpisodeBegan(ep *game.Episode) {
	v.say(fmt.Sprintf("episode %d began", ep.Number))
}

func (v *viewer) RewardIssued(_ *game.Episode, r game.Reward) {
	msg := fmt.Sprintf("%s %+.2f", r.Reason, r.Value)
	if r.CupID != "" {
		msg += " (" + r.CupID + ")"
	}
	v.say(msg)
}

func (v *viewer) EpisodeEnded(ep *game.Episode) {
	v.say(fmt.Sprintf("episode %d %s, reward %.2f", ep.Number, ep.Outcome, ep.CumulativeReward))
}

func (v *viewer) say(msg string) {
	v.messages = append(v.messages, msg)
	if len(v.messages) > maxMessages {
		v.messages = v.messages[len(v.messages)-maxMessages:]
	}
}

// project maps a world point to a screen cell in the arena area.
func (v *viewer) project(p game.Vec3) (int, int, bool) {
	arenaH := v.height - 3
	if v.width <= 0 || arenaH <= 0 {
		return 0, 0, false
	}
	x := int(math.Round((p.Z - v.minZ) / (v.maxZ - v.minZ) * float64(v.width-1)))
	y := arenaH - 1 - int(math.Round((p.Y-v.minY)/(v.maxY-v.minY)*float64(arenaH-1)))
	if x < 0 || x >= v.width || y < 0 || y >= arenaH {
		return 0, 0, false
	}
	return x, y, true
}

func (v *viewer) put(p game.Vec3, r rune, style tcell.Style) {
	if x, y, ok := v.project(p); ok {
		v.screen.SetContent(x, y, r, nil, style)
	}
}

func (v *viewer) text(x, y int, s string, style tcell.Style) {
	for i, r := range s {
		if x+i >= v.width {
			return
		}
		v.screen.SetContent(x+i, y, r, nil, style)
	}
}

func (v *viewer) draw() {
	v.screen.Clear()
	v.width, v.height = v.screen.Size()
	ctrl := v.env.Controller()
	s := ctrl.Settings()

	table := tcell.StyleDefault.Foreground(tcell.ColorOlive)
	for z := s.Table.MinZ; z <= s.Table.MaxZ; z += (v.maxZ - v.minZ) / float64(max(v.width, 1)) {
		v.put(game.Vec3{Y: s.Table.Height, Z: z}, '═', table)
	}

	for _, cup := range ctrl.Rack().List() {
		style := tcell.StyleDefault.Foreground(tcell.ColorRed)
		switch {
		case cup.Hit:
			style = tcell.StyleDefault.Foreground(tcell.ColorGray)
		case ctrl.AimedCup() != nil && ctrl.AimedCup().ID == cup.ID:
			style = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
		}
		v.put(cup.Position, 'U', style)
		v.put(game.Vec3{Y: cup.Position.Y + cup.Height, Z: cup.Position.Z}, '‾', style)
	}

	if v.visible {
		for _, p := range v.preview {
			v.put(p, '·', tcell.StyleDefault.Foreground(tcell.ColorTeal))
		}
	}
	v.put(ctrl.Ball().Position, '●', tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true))

	aim := ctrl.Aim()
	status := fmt.Sprintf("phase %-12s pitch %+6.1f yaw %+6.1f force %.2f  cups %d  bounces %d",
		ctrl.Phase(), aim.Pitch, aim.Yaw, aim.Force, ctrl.Rack().Remaining(), ctrl.Bounces())
	if ep := ctrl.Episode(); ep != nil {
		status += fmt.Sprintf("  episode %d reward %.2f", ep.Number, ep.CumulativeReward)
	}
	v.text(0, v.height-3, status, tcell.StyleDefault.Bold(true))
	if n := len(v.messages); n > 0 {
		v.text(0, v.height-2, v.messages[n-1], tcell.StyleDefault.Foreground(tcell.ColorGreen))
	}
	v.text(0, v.height-1, "arrows aim  +/- force  space throw  r reset  R reset cups  q quit", tcell.StyleDefault.Dim(true))
	v.screen.Show()
}

func (v *viewer) adjust(dPitch, dYaw, dForce float64) {
	v.action.Pitch = clamp(v.action.Pitch+dPitch, -1, 1)
	v.action.Yaw = clamp(v.action.Yaw+dYaw, -1, 1)
	v.action.Force = clamp(v.action.Force+dForce, 0, 1)
	ctrl := v.env.Controller()
	if ctrl.SetAim(v.action) {
		ctrl.UpdatePreview()
	}
}

// handleKey returns false when the viewer should quit.
func (v *viewer) handleKey(ev *tcell.EventKey) bool {
	ctrl := v.env.Controller()
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyUp:
		// Positive pitch tilts the throw downward.
		v.adjust(-aimStep, 0, 0)
	case tcell.KeyDown:
		v.adjust(aimStep, 0, 0)
	case tcell.KeyLeft:
		v.adjust(0, -aimStep, 0)
	case tcell.KeyRight:
		v.adjust(0, aimStep, 0)
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return false
		case '+', '=':
			v.adjust(0, 0, aimStep)
		case '-':
			v.adjust(0, 0, -aimStep)
		case ' ':
			v.env.RequestDecision()
		case 'r', 'R':
			ctrl.ManualReset(ev.Rune() == 'R')
			if ctrl.Episode() != nil && ctrl.Episode().Ended {
				v.env.Begin()
			}
			if !ctrl.Settings().PreserveAimOnReset {
				v.action = game.Action{}
			}
			ctrl.UpdatePreview()
		}
	}
	return true
}

func (v *viewer) run() {
	dt := v.env.Controller().Settings().FixedDeltaTime
	ticker := time.NewTicker(time.Duration(dt * float64(time.Second)))
	defer ticker.Stop()

	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	for {
		select {
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if !v.handleKey(ev) {
					return
				}
			case *tcell.EventResize:
				v.screen.Sync()
			}
		case <-ticker.C:
			v.env.Tick()
			v.draw()
		}
	}
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

func main() {
	scenarioFile := flag.String("scenario", "", "scenario YAML file (default: built-in six-cup triangle)")
	flag.Parse()

	scenario := config.DefaultScenario()
	if *scenarioFile != "" {
		sc, err := config.LoadScenario(*scenarioFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load scenario: %v\n", err)
			os.Exit(1)
		}
		scenario = sc
	}
	scenario.Episode.Mode = config.ModeManualHeuristic
	scenario.Episode.TrainingMode = false
	scenario.Episode.AutoRestart = true

	settings, err := game.SettingsFromScenario(scenario)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scenario: %v\n", err)
		os.Exit(1)
	}
	rack, err := game.CupsFromScenario(scenario)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scenario: %v\n", err)
		os.Exit(1)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "screen: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "screen: %v\n", err)
		os.Exit(1)
	}
	defer screen.Fini()

	v := &viewer{
		screen: screen,
		minZ:   settings.ArenaMin.Z,
		maxZ:   settings.ArenaMax.Z,
		minY:   0,
		maxY:   math.Max(settings.InitialPosition.Y, settings.Table.Height) + 1,
	}
	if v.maxZ <= v.minZ {
		v.minZ, v.maxZ = settings.Table.MinZ-0.5, settings.Table.MaxZ+0.5
	}

	ctrl := game.NewController(settings, rack,
		game.WithPreview(v),
		game.WithObserver(v),
		game.WithLogger(zap.NewNop()),
	)
	v.env = game.NewEnvironment(ctrl, zap.NewNop())
	v.env.Begin()
	v.run()
}
