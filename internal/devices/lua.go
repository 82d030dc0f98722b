package devices

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// scriptTimeout bounds how long a device script may run.
const scriptTimeout = 5 * time.Second

// LuaProvider reads device names from a Lua script. The script defines the
// globals `cameras` and `microphones`, each either a table of strings or a
// function returning one. The script runs once, when the provider is created.
type LuaProvider struct {
	path        string
	cameras     []string
	microphones []string
}

// NewLuaProvider runs the script at path and captures its device lists.
func NewLuaProvider(path string) (*LuaProvider, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read device script '%s': %w", path, err)
	}
	p := &LuaProvider{path: path}
	if err := p.run(string(code)); err != nil {
		return nil, fmt.Errorf("device script '%s': %w", path, err)
	}
	log.Printf("[Devices] Script %s reported %d camera(s), %d microphone(s)", path, len(p.cameras), len(p.microphones))
	return p, nil
}

// Cameras returns the camera names reported by the script.
func (p *LuaProvider) Cameras() []string {
	return append([]string(nil), p.cameras...)
}

// Microphones returns the microphone names reported by the script.
func (p *LuaProvider) Microphones() []string {
	return append([]string(nil), p.microphones...)
}

func (p *LuaProvider) run(code string) error {
	ctx, cancel := context.WithTimeout(context.Background(), scriptTimeout)
	defer cancel()

	L := lua.NewState()
	defer L.Close()
	L.SetContext(ctx)
	registerGoFunctions(L)

	if err := L.DoString(code); err != nil {
		return err
	}

	var err error
	if p.cameras, err = readList(L, "cameras"); err != nil {
		return err
	}
	if p.microphones, err = readList(L, "microphones"); err != nil {
		return err
	}
	return nil
}

// readList resolves a global that is either a table or a function returning one.
func readList(L *lua.LState, name string) ([]string, error) {
	v := L.GetGlobal(name)
	if fn, ok := v.(*lua.LFunction); ok {
		if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}); err != nil {
			return nil, fmt.Errorf("%s(): %w", name, err)
		}
		v = L.Get(-1)
		L.Pop(1)
	}

	switch t := v.(type) {
	case *lua.LNilType:
		return nil, nil
	case *lua.LTable:
		var out []string
		for i := 1; i <= t.Len(); i++ {
			s, ok := t.RawGetInt(i).(lua.LString)
			if !ok {
				return nil, fmt.Errorf("%s[%d] is %s, want string", name, i, t.RawGetInt(i).Type())
			}
			if str := strings.TrimSpace(string(s)); str != "" {
				out = append(out, str)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s is %s, want table or function", name, v.Type())
	}
}

// registerGoFunctions exposes the helpers a device script may call.
func registerGoFunctions(L *lua.LState) {
	L.SetGlobal("print", L.NewFunction(luaPrint))
	L.SetGlobal("getenv", L.NewFunction(luaGetenv))
	L.SetGlobal("read_file", L.NewFunction(luaReadFile))
	L.SetGlobal("list_dir", L.NewFunction(luaListDir))
}

func luaPrint(L *lua.LState) int {
	log.Printf("[Devices] %s", L.ToString(1))
	return 0
}

func luaGetenv(L *lua.LState) int {
	L.Push(lua.LString(os.Getenv(L.CheckString(1))))
	return 1
}

// luaReadFile returns the trimmed file content, or nil when it cannot be read.
func luaReadFile(L *lua.LState) int {
	data, err := os.ReadFile(L.CheckString(1))
	if err != nil {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(strings.TrimSpace(string(data))))
	return 1
}

// luaListDir returns the sorted entry names of a directory (empty table on error).
func luaListDir(L *lua.LState) int {
	tbl := L.NewTable()
	entries, err := os.ReadDir(L.CheckString(1))
	if err == nil {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		sort.Strings(names)
		for _, n := range names {
			tbl.Append(lua.LString(n))
		}
	}
	L.Push(tbl)
	return 1
}
