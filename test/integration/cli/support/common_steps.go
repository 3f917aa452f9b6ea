package support

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/qdocr/internal/testutil"
)

const commandTimeout = 60 * time.Second

// BinaryPath is the qdocr executable that "qdocr" in a step resolves to.
var BinaryPath = "qdocr"

// iRunCommand runs command from the module root and records its combined output.
func (testCtx *TestContext) iRunCommand(command string) error {
	return testCtx.run(command, "")
}

// iRunCommandWithInput runs command with doc as standard input.
func (testCtx *TestContext) iRunCommandWithInput(command string, doc *godog.DocString) error {
	return testCtx.run(command, doc.Content)
}

func (testCtx *TestContext) run(command, stdin string) error {
	command = testCtx.substituteCommandVariables(command)
	testCtx.LastCommand = command

	parts := strings.Fields(command)
	if len(parts) == 0 {
		return errors.New("empty command")
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	start := time.Now()
	name := parts[0]
	if name == "qdocr" {
		name = BinaryPath
	}
	cmd := exec.CommandContext(ctx, name, parts[1:]...)
	cmd.Dir = testCtx.WorkingDir
	cmd.Env = append(os.Environ(), testCtx.EnvVars...)
	cmd.Stdin = strings.NewReader(stdin)

	output, err := cmd.CombinedOutput()
	testCtx.LastOutput = string(output)
	testCtx.LastError = err
	testCtx.LastDuration = time.Since(start)

	testCtx.LastExitCode = 0
	if err != nil {
		exitError := &exec.ExitError{}
		if errors.As(err, &exitError) {
			testCtx.LastExitCode = exitError.ExitCode()
		} else {
			testCtx.LastExitCode = -1
		}
	}
	return nil
}

// theCommandShouldSucceed verifies the command succeeded.
func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastExitCode != 0 {
		return fmt.Errorf("command failed with exit code %d: %w\nOutput: %s",
			testCtx.LastExitCode, testCtx.LastError, testCtx.LastOutput)
	}
	return nil
}

// theCommandShouldFail verifies the command failed.
func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastExitCode == 0 {
		return fmt.Errorf("command succeeded when it should have failed\nOutput: %s", testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldContain(expected string) error {
	if !strings.Contains(testCtx.LastOutput, expected) {
		return fmt.Errorf("output does not contain %q\nOutput: %s", expected, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldNotContain(unexpected string) error {
	if strings.Contains(testCtx.LastOutput, unexpected) {
		return fmt.Errorf("output unexpectedly contains %q\nOutput: %s", unexpected, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldBeValidJSON() error {
	if !json.Valid([]byte(testCtx.LastOutput)) {
		return fmt.Errorf("output is not valid JSON\nOutput: %s", testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldBeAJSONArrayOfRecords(n int) error {
	var recs []map[string]any
	if err := json.Unmarshal([]byte(testCtx.LastOutput), &recs); err != nil {
		return fmt.Errorf("output is not a JSON array: %w\nOutput: %s", err, testCtx.LastOutput)
	}
	if len(recs) != n {
		return fmt.Errorf("got %d records, expected %d", len(recs), n)
	}
	return nil
}

func (testCtx *TestContext) theJSONFieldShouldBe(path, expected string) error {
	return jsonFieldShouldBe([]byte(testCtx.LastOutput), path, expected)
}

// aTextFileContaining writes doc to name inside the temp directory.
func (testCtx *TestContext) aTextFileContaining(name string, doc *godog.DocString) error {
	return testCtx.writeTempFile(name, []byte(doc.Content))
}

// aDecisionPageImage renders the sample decision as a synthetic page.
func (testCtx *TestContext) aDecisionPageImage(name string) error {
	page := testutil.NewPage(testutil.DecisionFixture().Lines)
	path := testCtx.TempPath(name)
	if err := testutil.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	f, err := os.Create(path) //nolint:gosec // G304: path is inside the scenario temp dir
	if err != nil {
		return err
	}
	if err := png.Encode(f, page.Image); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (testCtx *TestContext) aCorruptImage(name string) error {
	return testCtx.writeTempFile(name, []byte("definitely not an image"))
}

func (testCtx *TestContext) writeTempFile(name string, data []byte) error {
	path := testCtx.TempPath(name)
	if err := testutil.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func (testCtx *TestContext) theFileShouldExist(name string) error {
	path := testCtx.TempPath(name)
	if !testutil.FileExists(path) {
		return fmt.Errorf("file %s does not exist", path)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldContain(name, expected string) error {
	data, err := os.ReadFile(testCtx.TempPath(name))
	if err != nil {
		return err
	}
	if !strings.Contains(string(data), expected) {
		return fmt.Errorf("file %s does not contain %q\nContent: %s", name, expected, data)
	}
	return nil
}

func (testCtx *TestContext) theEnvironmentVariableIsSetTo(name, value string) error {
	testCtx.AddEnvVar(name, testCtx.substituteCommandVariables(value))
	return nil
}

// RegisterCommonSteps registers command and file steps.
func (testCtx *TestContext) RegisterCommonSteps(sc *godog.ScenarioContext) {
	sc.Step(`^I run "([^"]*)"$`, testCtx.iRunCommand)
	sc.Step(`^I run "([^"]*)" with input:$`, testCtx.iRunCommandWithInput)
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)
	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the output should not contain "([^"]*)"$`, testCtx.theOutputShouldNotContain)
	sc.Step(`^the output should be valid JSON$`, testCtx.theOutputShouldBeValidJSON)
	sc.Step(`^the output should be a JSON array of (\d+) records$`, testCtx.theOutputShouldBeAJSONArrayOfRecords)
	sc.Step(`^the JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theJSONFieldShouldBe)
	sc.Step(`^a text file "([^"]*)" containing:$`, testCtx.aTextFileContaining)
	sc.Step(`^a decision page image "([^"]*)"$`, testCtx.aDecisionPageImage)
	sc.Step(`^a corrupt image "([^"]*)"$`, testCtx.aCorruptImage)
	sc.Step(`^the file "([^"]*)" should exist$`, testCtx.theFileShouldExist)
	sc.Step(`^the file "([^"]*)" should contain "([^"]*)"$`, testCtx.theFileShouldContain)
	sc.Step(`^the environment variable "([^"]*)" is set to "([^"]*)"$`, testCtx.theEnvironmentVariableIsSetTo)
}
