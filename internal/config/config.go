package config

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/mergeviz/internal/engine"
)

//go:embed schema.cue
var schemaCUE string

// Profile is a validated pacing profile.
type Profile struct {
	Name    string
	Speed   float64
	Delays  engine.PacingTable
	Palette map[string]string
}

// Pacer returns the profile's delays scaled by its speed.
func (p Profile) Pacer() engine.Pacer {
	return engine.Scaled(p.Delays, p.Speed)
}

// Default returns the profile an empty file produces.
func Default() Profile {
	p, err := Parse(nil, "default.cue")
	if err != nil {
		// The embedded schema is fixed; failing here is a build defect.
		panic(fmt.Sprintf("config: default profile: %v", err))
	}
	return p
}

// Load reads and validates the profile at path.
func Load(path string) (Profile, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}
	return Parse(src, path)
}

// Parse validates src against the profile schema. filename is used in
// error positions only.
func Parse(src []byte, filename string) (Profile, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Profile{}, formatCUEError(err)
	}
	def := schema.LookupPath(cue.ParsePath("#Profile"))

	data := ctx.CompileBytes(src, cue.Filename(filename))
	if err := data.Err(); err != nil {
		return Profile{}, formatCUEError(err)
	}

	v := def.Unify(data)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Profile{}, formatCUEError(err)
	}

	profile := Profile{}

	if nameVal := v.LookupPath(cue.ParsePath("name")); nameVal.Exists() && nameVal.IsConcrete() {
		name, err := nameVal.String()
		if err != nil {
			return Profile{}, formatCUEError(err)
		}
		profile.Name = name
	}

	speed, err := v.LookupPath(cue.ParsePath("speed")).Float64()
	if err != nil {
		return Profile{}, formatCUEError(err)
	}
	profile.Speed = speed

	var delays map[string]int64
	if err := v.LookupPath(cue.ParsePath("delays")).Decode(&delays); err != nil {
		return Profile{}, formatCUEError(err)
	}
	profile.Delays, err = pacingTable(delays)
	if err != nil {
		return Profile{}, err
	}

	profile.Palette = map[string]string{}
	if palVal := v.LookupPath(cue.ParsePath("palette")); palVal.Exists() {
		if err := palVal.Decode(&profile.Palette); err != nil {
			return Profile{}, formatCUEError(err)
		}
	}

	return profile, nil
}

func pacingTable(delays map[string]int64) (engine.PacingTable, error) {
	names := make([]string, 0, len(delays))
	for name := range delays {
		names = append(names, name)
	}
	sort.Strings(names)

	table := engine.PacingTable{}
	for _, name := range names {
		pause, err := engine.ParsePause(name)
		if err != nil {
			return nil, &ConfigError{Field: "delays." + name, Message: err.Error()}
		}
		table[pause] = time.Duration(delays[name]) * time.Millisecond
	}
	return table, nil
}

// ConfigError is a profile validation error with source position.
type ConfigError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *ConfigError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &ConfigError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return &ConfigError{Field: "cue", Message: first.Error()}
}
