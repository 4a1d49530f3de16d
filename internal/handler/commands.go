package handler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/timeweave/engine/internal/net"
	"github.com/timeweave/engine/internal/tempo"
	"github.com/timeweave/engine/internal/world"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// HandleAuth checks the console password. A wrong password closes the
// session once the reply is written.
func HandleAuth(c Conn, args []string, deps *Deps) {
	if len(args) != 1 {
		c.Send("usage: auth <password>")
		return
	}
	hash := deps.Config.Console.PasswordHash
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(args[0])); err != nil {
		deps.Log.Warn("console auth failed", zap.Error(err))
		c.Send("denied")
		c.CloseAfterFlush()
		return
	}
	c.SetState(net.StateReady)
	c.Send("ok")
}

func HandleHelp(c Conn, reg *Registry) {
	for _, u := range reg.Usage(c.State()) {
		c.Send(u)
	}
}

func HandleQuit(c Conn) {
	c.Send("bye")
	c.CloseAfterFlush()
}

// HandleStatus reports the published engine status.
func HandleStatus(c Conn, deps *Deps) {
	st := deps.Engine.Status()
	p := deps.printer
	c.Send(p.Sprintf("tick %d  elapsed %.2fs", st.Tick, st.Elapsed))
	c.Send(p.Sprintf("scale %.2f  target %.2f", st.Scale, st.Target))
	c.Send(p.Sprintf("energy %.1f (%.0f%%)", st.Energy, st.EnergyPercent))
	if st.Rewinding {
		c.Send(p.Sprintf("rewinding %.0f%%", st.RewindProgress*100))
	}
	c.Send(p.Sprintf("timeline %d snapshots over %.2fs", st.TimelineLen, st.TimelineSpan))
	c.Send(p.Sprintf("entities %d  bubbles %d", st.Entities, st.Bubbles))
}

func HandleSlow(c Conn, args []string, deps *Deps) {
	f, ok := oneFloat(c, args, "slow <factor>")
	if !ok {
		return
	}
	reply(c, deps.Engine.SlowMotion(f))
}

func HandleSpeed(c Conn, args []string, deps *Deps) {
	f, ok := oneFloat(c, args, "speed <factor>")
	if !ok {
		return
	}
	reply(c, deps.Engine.SpeedUp(f))
}

func HandleStop(c Conn, deps *Deps) {
	reply(c, deps.Engine.StopTime())
}

func HandleNormal(c Conn, deps *Deps) {
	reply(c, deps.Engine.ResumeNormal())
}

// HandleRewind starts a rewind, defaulting to the configured duration.
func HandleRewind(c Conn, args []string, deps *Deps) {
	d := deps.Config.Rewind.DefaultDuration
	if len(args) > 0 {
		v, err := strconv.ParseFloat(args[0], 64)
		if err != nil || !finite(v) || v <= 0 {
			c.Send("usage: rewind [seconds]")
			return
		}
		d = v
	}
	e := deps.Engine
	if e.StartRewind(d) {
		c.Send(deps.printer.Sprintf("rewinding %.2fs", d))
		return
	}
	switch {
	case e.IsRewinding():
		c.Send("refused: already rewinding")
	case e.Clock().Energy() < e.Rewinder().Cost():
		c.Send(deps.printer.Sprintf("refused: need %.1f energy", e.Rewinder().Cost()))
	default:
		c.Send("refused: no history")
	}
}

func HandleHalt(c Conn, deps *Deps) {
	if !deps.Engine.StopRewind() {
		c.Send("not rewinding")
		return
	}
	c.Send("ok")
}

// HandleBubble creates a bubble. Duration defaults to infinite.
func HandleBubble(c Conn, args []string, deps *Deps) {
	const usage = "usage: bubble <x> <y> <z> <radius> <scale> [duration]"
	if len(args) < 5 || len(args) > 6 {
		c.Send(usage)
		return
	}
	nums := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil || !finite(v) {
			c.Send(usage)
			return
		}
		nums[i] = v
	}
	duration := -1.0
	if len(nums) == 6 {
		duration = nums[5]
	}
	center := tempo.Vec3{X: nums[0], Y: nums[1], Z: nums[2]}
	id, err := deps.Engine.CreateBubble(center, nums[3], nums[4], duration)
	if err != nil {
		if errors.Is(err, tempo.ErrInvalidBubble) {
			c.Send("refused: " + err.Error())
			return
		}
		c.Send("error: " + err.Error())
		return
	}
	msg := deps.printer.Sprintf("bubble %d created", uint64(id))
	if deps.World != nil {
		if inside := deps.World.Within(center, nums[3]); len(inside) > 0 {
			names := make([]string, len(inside))
			for i, b := range inside {
				names[i] = b.Name
			}
			msg += ", holds " + strings.Join(names, " ")
		}
	}
	c.Send(msg)
}

func HandleUnbubble(c Conn, args []string, deps *Deps) {
	if len(args) != 1 {
		c.Send("usage: unbubble <id>")
		return
	}
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		c.Send("usage: unbubble <id>")
		return
	}
	if !deps.Engine.RemoveBubble(tempo.BubbleID(id)) {
		c.Send("no such bubble")
		return
	}
	c.Send("ok")
}

func HandleBubbles(c Conn, deps *Deps) {
	bs := deps.Engine.Zones().Bubbles()
	if len(bs) == 0 {
		c.Send("no bubbles")
		return
	}
	p := deps.printer
	for _, b := range bs {
		left := "forever"
		if !b.Infinite() {
			left = p.Sprintf("%.2fs", b.Duration)
		}
		c.Send(p.Sprintf("#%d at (%.1f, %.1f, %.1f) r=%.1f scale=%.2f members=%d %s",
			uint64(b.ID), b.Center.X, b.Center.Y, b.Center.Z, b.Radius, b.Scale, len(b.Members), left))
	}
}

func HandleBodies(c Conn, deps *Deps) {
	if deps.World == nil || deps.World.BodyCount() == 0 {
		c.Send("no bodies")
		return
	}
	p := deps.printer
	deps.World.AllBodies(func(b *world.Body) {
		c.Send(p.Sprintf("%s at (%.2f, %.2f, %.2f) scale=%.2f",
			b.Name, b.Pos.X, b.Pos.Y, b.Pos.Z, b.TimeScale()))
	})
}

// HandleJournal lists the newest persisted time-control events.
func HandleJournal(c Conn, args []string, deps *Deps) {
	if deps.Journal == nil {
		c.Send("journal unavailable, database disabled")
		return
	}
	n := 10
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v <= 0 {
			c.Send("usage: journal [n]")
			return
		}
		n = v
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	entries, err := deps.Journal.Recent(ctx, deps.Config.Engine.Session, n)
	if err != nil {
		deps.Log.Error("journal query failed", zap.Error(err))
		c.Send("error: journal query failed")
		return
	}
	if len(entries) == 0 {
		c.Send("journal empty")
		return
	}
	for _, e := range entries {
		c.Send(deps.printer.Sprintf("%.2fs %s %s", e.SimTime, e.Kind, formatDetail(e.Detail)))
	}
}

func formatDetail(d map[string]any) string {
	if len(d) == 0 {
		return ""
	}
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, d[k])
	}
	return strings.Join(parts, " ")
}

func oneFloat(c Conn, args []string, usage string) (float64, bool) {
	if len(args) != 1 {
		c.Send("usage: " + usage)
		return 0, false
	}
	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil || !finite(v) {
		c.Send("usage: " + usage)
		return 0, false
	}
	return v, true
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func reply(c Conn, accepted bool) {
	if accepted {
		c.Send("ok")
		return
	}
	c.Send("refused")
}
