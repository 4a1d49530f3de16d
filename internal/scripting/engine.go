package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/timeweave/engine/internal/tempo"
	"github.com/timeweave/engine/internal/world"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Lua entry points looked up by name.
const (
	fnSteer       = "steer"
	fnBubbleScale = "bubble_scale"
)

// Engine wraps a single gopher-lua VM for designer hooks.
// Single-goroutine access only (game loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given directory.
// A missing directory yields an engine with no hooks.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	e := newVM(log)

	// Top-level scripts first, then feature directories
	if err := e.loadDir(scriptsDir); err != nil {
		e.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	for _, sub := range []string{"steering", "zones"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			e.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}
	return e, nil
}

func newVM(log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	return &Engine{vm: vm, log: log}
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// LoadString runs a chunk of Lua source in the engine's VM.
func (e *Engine) LoadString(src string) error {
	return e.vm.DoString(src)
}

// HasFunction reports whether a global Lua function is defined.
func (e *Engine) HasFunction(name string) bool {
	_, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	return ok
}

// Steer calls the Lua steer(body, dt) function. The body table carries
// name, x, y, z, vx, vy, vz and scale. The function returns a table with
// x, y, z velocity components, or nil to keep the current velocity.
// ok is false when no steering is defined or the call fails.
func (e *Engine) Steer(b *world.Body, dt float64) (tempo.Vec3, bool) {
	fn, found := e.vm.GetGlobal(fnSteer).(*lua.LFunction)
	if !found {
		return tempo.Vec3{}, false
	}

	t := e.vm.NewTable()
	t.RawSetString("name", lua.LString(b.Name))
	t.RawSetString("x", lua.LNumber(b.Pos.X))
	t.RawSetString("y", lua.LNumber(b.Pos.Y))
	t.RawSetString("z", lua.LNumber(b.Pos.Z))
	t.RawSetString("vx", lua.LNumber(b.Vel.X))
	t.RawSetString("vy", lua.LNumber(b.Vel.Y))
	t.RawSetString("vz", lua.LNumber(b.Vel.Z))
	t.RawSetString("scale", lua.LNumber(b.TimeScale()))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t, lua.LNumber(dt)); err != nil {
		e.log.Error("lua steer error", zap.String("body", b.Name), zap.Error(err))
		return tempo.Vec3{}, false
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		return tempo.Vec3{}, false
	}
	return tempo.Vec3{X: lNum(rt, "x"), Y: lNum(rt, "y"), Z: lNum(rt, "z")}, true
}

// Falloff returns a bubble falloff backed by the Lua bubble_scale function,
// or nil when the scripts do not define one. A failing call falls back to
// the bubble's flat scale.
func (e *Engine) Falloff() tempo.Falloff {
	if !e.HasFunction(fnBubbleScale) {
		return nil
	}
	return func(distance, radius, scale float64) float64 {
		fn := e.vm.GetGlobal(fnBubbleScale)
		if err := e.vm.CallByParam(lua.P{
			Fn:      fn,
			NRet:    1,
			Protect: true,
		}, lua.LNumber(distance), lua.LNumber(radius), lua.LNumber(scale)); err != nil {
			e.log.Error("lua bubble_scale error", zap.Error(err))
			return scale
		}
		result := e.vm.Get(-1)
		e.vm.Pop(1)
		n, ok := result.(lua.LNumber)
		if !ok {
			return scale
		}
		return float64(n)
	}
}

// --- Lua helpers ---

// lNum reads a number field from a Lua table.
func lNum(t *lua.LTable, key string) float64 {
	return float64(lua.LVAsNumber(t.RawGetString(key)))
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
