package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEnvURLRequiresScheme(t *testing.T) {
	assert.Error(t, validateEnvURL("localhost:8080"))
	assert.NoError(t, validateEnvURL("http://localhost:8080"))
}

func TestValidateEnvDurationRejectsGarbage(t *testing.T) {
	assert.Error(t, validateEnvDuration(""))
	assert.Error(t, validateEnvDuration("soon"))
	assert.NoError(t, validateEnvDuration("100ms"))
	assert.NoError(t, validateEnvDuration("1.5s"))
}

func TestValidateEnvTimeOfDayRejectsOutOfRange(t *testing.T) {
	assert.Error(t, validateEnvTimeOfDay("24:00"))
	assert.Error(t, validateEnvTimeOfDay("not-a-time"))
	assert.NoError(t, validateEnvTimeOfDay("23:59"))
}

func TestValidateEnvPathRejectsTraversal(t *testing.T) {
	assert.Error(t, validateEnvPath("../etc/passwd"))
	assert.NoError(t, validateEnvPath("/data/piccolo"))
}

func TestBindEnvVarsSucceedsWithNoEnvSet(t *testing.T) {
	assert.NoError(t, bindEnvVars())
}

func TestBindEnvVarsReportsInvalidValue(t *testing.T) {
	t.Setenv("PICCOLO_JSONRPC_URL", "not-a-url")
	err := bindEnvVars()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "PICCOLO_JSONRPC_URL")
}
