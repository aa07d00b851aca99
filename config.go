package docshare

import "github.com/goliatone/go-docshare/internal/runtimeconfig"

var (
	ErrKernelBaseURLRequired    = runtimeconfig.ErrKernelBaseURLRequired
	ErrRegistryServerRequired   = runtimeconfig.ErrRegistryServerRequired
	ErrTimeoutInvalid           = runtimeconfig.ErrTimeoutInvalid
	ErrReferenceDepthInvalid    = runtimeconfig.ErrReferenceDepthInvalid
	ErrStorageProviderUnknown   = runtimeconfig.ErrStorageProviderUnknown
	ErrStorageAddressingUnknown = runtimeconfig.ErrStorageAddressingUnknown
	ErrPersistenceDriverUnknown = runtimeconfig.ErrPersistenceDriverUnknown
	ErrPersistenceDSNRequired   = runtimeconfig.ErrPersistenceDSNRequired
	ErrLoggingProviderRequired  = runtimeconfig.ErrLoggingProviderRequired
	ErrLoggingProviderUnknown   = runtimeconfig.ErrLoggingProviderUnknown
	ErrLoggingLevelInvalid      = runtimeconfig.ErrLoggingLevelInvalid
	ErrLoggingFormatInvalid     = runtimeconfig.ErrLoggingFormatInvalid
)

type (
	Config            = runtimeconfig.Config
	KernelConfig      = runtimeconfig.KernelConfig
	RegistryConfig    = runtimeconfig.RegistryConfig
	StorageConfig     = runtimeconfig.StorageConfig
	AssetsConfig      = runtimeconfig.AssetsConfig
	ReferencesConfig  = runtimeconfig.ReferencesConfig
	CacheConfig       = runtimeconfig.CacheConfig
	PersistenceConfig = runtimeconfig.PersistenceConfig
	LoggingConfig     = runtimeconfig.LoggingConfig
)

func DefaultConfig() Config {
	return runtimeconfig.DefaultConfig()
}

// LoadConfig reads a YAML file over the defaults and applies environment
// overrides for secrets.
func LoadConfig(path string) (Config, error) {
	return runtimeconfig.Load(path)
}
