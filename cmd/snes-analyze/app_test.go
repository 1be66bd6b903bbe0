package main

import (
	"bytes"
	"testing"

	snesanalyze "snes-analyze"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp() (*App, *bytes.Buffer) {
	var buf bytes.Buffer
	analysis := snesanalyze.NewAnalysis(&snesanalyze.ROM{RomType: snesanalyze.ROMUnknown})
	app := &App{
		Analysis: analysis,
		Out:      &buf,
		commands: buildCommands(),
	}
	return app, &buf
}

func TestHandleLineQuitSetsExit(t *testing.T) {
	app, _ := newTestApp()
	app.handleLine("quit")
	assert.True(t, app.exit)
}

func TestHandleLineUnknownRootPrintsCommandList(t *testing.T) {
	app, buf := newTestApp()
	app.handleLine("bogus")
	assert.Contains(t, buf.String(), "Commands:")
}

func TestHandleLineContainerWithoutLeafPrintsSubcommands(t *testing.T) {
	app, buf := newTestApp()
	app.handleLine("assert")
	assert.Contains(t, buf.String(), "Subcommands:")
}

func TestHandleLineMissingArgPrintsUsage(t *testing.T) {
	app, buf := newTestApp()
	app.handleLine("comment")
	assert.Contains(t, buf.String(), "Usage:")
}

func TestHandleLineCommandErrorPrintsInBand(t *testing.T) {
	app, buf := newTestApp()
	app.handleLine("memory zzzzzz 10 1")
	assert.Contains(t, buf.String(), "Invalid integer value.")
	assert.False(t, app.exit)
}

func TestGetSubroutineErrorsWhenNoneSelected(t *testing.T) {
	app, _ := newTestApp()
	_, err := app.getSubroutine()
	require.Error(t, err)
	kind, _ := snesanalyze.AsKind(err)
	assert.Equal(t, snesanalyze.ErrNoSelectedSubroutine, kind)
}

func TestJoinTokensJoinsWithSpaces(t *testing.T) {
	assert.Equal(t, "assert entrypoint", joinTokens([]string{"assert", "entrypoint"}))
	assert.Equal(t, "", joinTokens(nil))
}
