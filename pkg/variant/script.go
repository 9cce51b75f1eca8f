package variant

import (
	"context"
	"fmt"
	"time"

	"github.com/d5/tengo/v2"

	"github.com/cperrin88/grabvid/pkg/errors"
	"github.com/cperrin88/grabvid/pkg/model"
)

// scriptTimeout bounds a single predicate evaluation.
const scriptTimeout = 100 * time.Millisecond

var scriptVars = []string{"id", "container", "height", "fps", "size", "note", "has_audio", "has_video"}

// CompileScript compiles a tengo snippet into a Predicate. The snippet sees
// the variant fields as globals and must assign a bool to result, e.g.
//
//	result := height != undefined && height >= 720
//
// No stdlib modules are importable. Unknown optional values are undefined.
// A runtime error or a non-bool result rejects the variant.
func CompileScript(src string) (Predicate, error) {
	script := tengo.NewScript([]byte(src))
	for _, name := range scriptVars {
		if err := script.Add(name, nil); err != nil {
			return nil, fmt.Errorf("%w: %w", errors.ErrInvalidFilterScript, err)
		}
	}

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrInvalidFilterScript, err)
	}

	return func(d model.VariantDescriptor) bool {
		ok, err := evalScript(compiled.Clone(), d)
		return err == nil && ok
	}, nil
}

func evalScript(c *tengo.Compiled, d model.VariantDescriptor) (bool, error) {
	vars := map[string]interface{}{
		"id":        d.ID,
		"container": d.Container,
		"height":    nil,
		"fps":       nil,
		"size":      nil,
		"note":      d.Note,
		"has_audio": d.HasAudio,
		"has_video": d.HasVideo,
	}
	if d.HeightPx != nil {
		vars["height"] = *d.HeightPx
	}
	if d.FPS != nil {
		vars["fps"] = *d.FPS
	}
	if d.ApproxSizeBytes != nil {
		vars["size"] = *d.ApproxSizeBytes
	}
	for name, v := range vars {
		if err := c.Set(name, v); err != nil {
			return false, err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), scriptTimeout)
	defer cancel()
	if err := c.RunContext(ctx); err != nil {
		return false, err
	}

	result, ok := c.Get("result").Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: result is not a bool", errors.ErrInvalidFilterScript)
	}
	return result, nil
}
