package storage

import "os"

// awsEnvKeys, gcsEnvKeys and azureEnvKeys are the environment defaults
// a storage_config map overlays on top of, per the runtime's
// environment conventions for object-store credentials.
var (
	awsEnvKeys = []string{
		"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "AWS_SESSION_TOKEN",
		"AWS_REGION", "AWS_ENDPOINT_URL",
	}
	gcsEnvKeys   = []string{"GOOGLE_APPLICATION_CREDENTIALS", "GOOGLE_SERVICE_ACCOUNT_KEY"}
	azureEnvKeys = []string{
		"AZURE_STORAGE_ACCOUNT_NAME", "AZURE_STORAGE_ACCOUNT_KEY", "AZURE_STORAGE_SAS_TOKEN",
		"AZURE_CLIENT_ID", "AZURE_CLIENT_SECRET", "AZURE_TENANT_ID",
	}
)

func envKeysFor(scheme string) []string {
	switch scheme {
	case "s3":
		return awsEnvKeys
	case "gs":
		return gcsEnvKeys
	case "az":
		return azureEnvKeys
	default:
		return nil
	}
}

// ResolveStorageConfig overlays storageConfig on top of the process
// environment's matching credential keys for scheme: an explicit key
// in storageConfig wins, and any key the document omits falls back to
// its environment variable when set.
func ResolveStorageConfig(scheme string, storageConfig map[string]string) map[string]string {
	resolved := make(map[string]string, len(storageConfig))
	for k, v := range storageConfig {
		resolved[k] = v
	}
	for _, envKey := range envKeysFor(scheme) {
		if _, explicit := resolved[envKey]; explicit {
			continue
		}
		if v := os.Getenv(envKey); v != "" {
			resolved[envKey] = v
		}
	}
	return resolved
}
