package cli_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/qdocr/internal/testutil"
	"github.com/MeKo-Tech/qdocr/test/integration/cli/support"
)

func initializeScenario(sc *godog.ScenarioContext) {
	tc, err := support.NewTestContext()
	if err != nil {
		panic(fmt.Sprintf("create test context: %v", err))
	}
	tc.RegisterCommonSteps(sc)
	tc.RegisterServerSteps(sc)

	sc.After(func(ctx context.Context, _ *godog.Scenario, _ error) (context.Context, error) {
		if err := tc.Cleanup(); err != nil {
			fmt.Printf("Warning: cleanup: %v\n", err)
		}
		return ctx, nil
	})
}

func TestFeatures(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("features", "*.feature"))
	if err != nil || len(paths) == 0 {
		t.Fatalf("no .feature files found in features/ (%v)", err)
	}

	format := os.Getenv("GODOG_FORMAT")
	if format == "" {
		format = "pretty"
	}

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			suite := godog.TestSuite{
				Name:                filepath.Base(path),
				ScenarioInitializer: initializeScenario,
				Options: &godog.Options{
					Format:   format,
					Tags:     os.Getenv("GODOG_TAGS"),
					Paths:    []string{path},
					TestingT: t,
				},
			}
			if status := suite.Run(); status != 0 {
				t.Fatalf("%s: godog exited with status %d", path, status)
			}
		})
	}
}

// TestMain compiles cmd/qdocr once into a scratch directory; steps that run
// "qdocr ..." execute that binary. QDOCR_BIN skips the build.
func TestMain(m *testing.M) {
	os.Exit(runSuite(m))
}

func runSuite(m *testing.M) int {
	if bin := os.Getenv("QDOCR_BIN"); bin != "" {
		support.BinaryPath = bin
		return m.Run()
	}

	root, err := testutil.GetProjectRootValidated()
	if err != nil {
		fmt.Fprintf(os.Stderr, "locate project root: %v\n", err)
		return 1
	}
	binDir, err := os.MkdirTemp("", "qdocr-bin-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "create bin dir: %v\n", err)
		return 1
	}
	defer func() { _ = os.RemoveAll(binDir) }()

	support.BinaryPath = filepath.Join(binDir, "qdocr")
	build := exec.CommandContext(context.Background(), "go", "build", "-o", support.BinaryPath, "./cmd/qdocr")
	build.Dir = root
	if out, err := build.CombinedOutput(); err != nil {
		fmt.Fprintf(os.Stderr, "build qdocr: %v\n%s\n", err, out)
		return 1
	}
	return m.Run()
}
