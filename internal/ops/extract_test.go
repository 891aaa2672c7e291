package ops

import (
	"context"
	"testing"

	"github.com/graftdev/graft/internal/errors"
)

const webpackConfig = `// build configuration
const path = require("path");

module.exports = {
  mode: "production",
  devServer: {
    port: 8080,
    hot: true, // trailing comma next
  },
  entry: ["./src/index.js", "./src/admin.js"],
};
`

func TestExtract_ObjectAfterAnchor(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeTarget(t, "webpack.config.js", webpackConfig)

	out, err := Extract(context.Background(), env.cfg, ExtractInput{
		Path: path,
		From: "module.exports =",
	})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	obj, ok := out.Value.(map[string]any)
	if !ok {
		t.Fatalf("Value = %T, want object", out.Value)
	}
	if obj["mode"] != "production" {
		t.Errorf("mode = %v, want production", obj["mode"])
	}

	dev, ok := obj["devServer"].(map[string]any)
	if !ok {
		t.Fatalf("devServer = %T, want nested object", obj["devServer"])
	}
	if dev["port"] != float64(8080) {
		t.Errorf("port = %v, want 8080", dev["port"])
	}
	if dev["hot"] != true {
		t.Errorf("hot = %v, want true", dev["hot"])
	}

	entry, ok := obj["entry"].([]any)
	if !ok || len(entry) != 2 {
		t.Errorf("entry = %v, want two-element array", obj["entry"])
	}

	if out.Line != 4 {
		t.Errorf("Line = %d, want 4", out.Line)
	}
	if out.Raw == "" || out.Raw[0] != '{' {
		t.Errorf("Raw = %q, want the literal span starting at '{'", out.Raw)
	}
}

func TestExtract_FirstLiteralWithoutAnchor(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeTarget(t, "flags.js", "const flags = [\"beta\", \"dark-mode\"];\n")

	out, err := Extract(context.Background(), env.cfg, ExtractInput{Path: path})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	arr, ok := out.Value.([]any)
	if !ok || len(arr) != 2 {
		t.Fatalf("Value = %v, want two-element array", out.Value)
	}
	if arr[0] != "beta" {
		t.Errorf("first element = %v, want beta", arr[0])
	}
}

func TestExtract_AnchorNotFound(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeTarget(t, "app.js", "const x = { a: 1 };\n")

	_, err := Extract(context.Background(), env.cfg, ExtractInput{
		Path: path,
		From: "module.exports =",
	})
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected NOT_FOUND for missing anchor, got %v", err)
	}
}

func TestExtract_NoLiteralAfterAnchor(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeTarget(t, "app.js", "const greeting = \"hello\";\n")

	_, err := Extract(context.Background(), env.cfg, ExtractInput{Path: path})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected INVALID_REQUEST when no literal exists, got %v", err)
	}
}

func TestExtract_MalformedLiteral(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeTarget(t, "app.js", "module.exports = { port: };\n")

	_, err := Extract(context.Background(), env.cfg, ExtractInput{
		Path: path,
		From: "module.exports =",
	})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected INVALID_REQUEST for malformed literal, got %v", err)
	}
}
