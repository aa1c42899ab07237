package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveStorageConfig_ExplicitWinsOverEnv(t *testing.T) {
	t.Setenv("AWS_REGION", "us-east-1")

	resolved := ResolveStorageConfig("s3", map[string]string{"AWS_REGION": "eu-west-1"})
	require.Equal(t, "eu-west-1", resolved["AWS_REGION"])
}

func TestResolveStorageConfig_FallsBackToEnv(t *testing.T) {
	t.Setenv("AWS_REGION", "us-east-1")

	resolved := ResolveStorageConfig("s3", map[string]string{})
	require.Equal(t, "us-east-1", resolved["AWS_REGION"])
}

func TestResolveStorageConfig_UnknownSchemeIgnored(t *testing.T) {
	resolved := ResolveStorageConfig("file", map[string]string{"foo": "bar"})
	require.Equal(t, map[string]string{"foo": "bar"}, resolved)
}
