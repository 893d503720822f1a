package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infrasalama/backend/internal/form"
)

func TestSampleContactIsValid(t *testing.T) {
	result := form.Contact.Validate(sampleContact())
	require.True(t, result.IsValid(), "%v", result.Errors())

	email, ok := result.Record().Get("email")
	assert.True(t, ok)
	assert.Equal(t, "test@infrasalama.dz", email)
}

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"serve", "test-mail", "sink"} {
		t.Run(name, func(t *testing.T) {
			cmd, _, err := rootCmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, cmd.Name())
		})
	}

	flag := rootCmd.PersistentFlags().Lookup("env")
	require.NotNil(t, flag)
	assert.Equal(t, ".env", flag.DefValue)
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "b", "c"))
	assert.Equal(t, "", firstNonEmpty("", ""))
}
