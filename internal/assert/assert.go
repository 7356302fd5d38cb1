package assert

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Assert is a wrapper around assert.Assertions and testing.T
type Assert struct {
	*assert.Assertions
	T *testing.T
}

// New creates a new Assert object
func New(t *testing.T) *Assert {
	return &Assert{
		Assertions: assert.New(t),
		T:          t,
	}
}

// EqualToFixture compares actual with the content of a fixture file.
// If GEN_FIXTURE=true is set, it writes actual to the fixture file and passes the test.
// The fixture path is derived from the test name: testdata/fixtures/<a.T.Name()>_<fixtureName>.txt
func (a *Assert) EqualToFixture(fixtureName string, actual string) {
	fixturePath := a.fixturePath(fixtureName, ".txt")

	if os.Getenv("GEN_FIXTURE") == "true" {
		err := os.MkdirAll(filepath.Dir(fixturePath), 0755)
		a.NoError(err, "Failed to create fixture directory")
		err = os.WriteFile(fixturePath, []byte(actual), 0644)
		a.NoError(err, "Failed to write fixture file")
		return
	}

	expected, err := os.ReadFile(fixturePath)
	if !a.NoError(err, "Failed to read fixture file (run with GEN_FIXTURE=true to create it)") {
		return
	}
	a.Equal(string(expected), actual, "Result does not match fixture %s", fixturePath)
}

// EqualToJSONFixture marshals the result to indented JSON and compares it
// like EqualToFixture, using a .json fixture file.
func (a *Assert) EqualToJSONFixture(fixtureName string, result any) {
	resultJSON, err := json.MarshalIndent(result, "", "  ")
	a.NoError(err, "Failed to marshal result to JSON")

	fixturePath := a.fixturePath(fixtureName, ".json")
	actual := string(resultJSON) + "\n"

	if os.Getenv("GEN_FIXTURE") == "true" {
		err := os.MkdirAll(filepath.Dir(fixturePath), 0755)
		a.NoError(err, "Failed to create fixture directory")
		err = os.WriteFile(fixturePath, []byte(actual), 0644)
		a.NoError(err, "Failed to write fixture file")
		return
	}

	expected, err := os.ReadFile(fixturePath)
	if !a.NoError(err, "Failed to read fixture file (run with GEN_FIXTURE=true to create it)") {
		return
	}
	a.JSONEq(string(expected), actual, "Result does not match fixture %s", fixturePath)
}

func (a *Assert) fixturePath(fixtureName, ext string) string {
	name := strings.ReplaceAll(a.T.Name(), "/", "_")
	return filepath.Join("testdata", "fixtures", fmt.Sprintf("%s_%s%s", name, fixtureName, ext))
}
