package config

// Application name used for XDG directories and the env prefix.
const AppName = "caravan"

// Container format defaults. The legacy values keep archives produced by
// the original Windows tool openable.
const (
	DefaultMagic           = "CRVDATA1"
	DefaultLegacyMagic     = "SNRDATA1"
	DefaultExtension       = ".caravan"
	DefaultLegacyExtension = ".snrsave"
)

// Preset archive defaults.
const (
	DefaultPresetExtension   = ".cpreset"
	DefaultPresetArchiveRoot = "SaveData"
)

// Game profile defaults.
const (
	DefaultSaveDataDir   = "SaveData"
	DefaultExeMarker     = "Game.exe"
	DefaultLocalLowScope = "Caravan"
)

// DefaultMigrationInclude lists the profile-relative paths carried by a
// migration, as anchored regular expressions.
var DefaultMigrationInclude = []string{
	`^SaveData/`,
	`^Settings\.json$`,
	`^CustomKeybinds\.json$`,
}

// DefaultRequiredFiles must exist in a freshly extracted release before
// it is promoted into the profile.
var DefaultRequiredFiles = []string{
	"BepInEx/core/BepInEx.dll",
}

// Release resolution defaults.
const (
	DefaultReleaseAPIBase       = "https://api.github.com"
	DefaultReleaseOwner         = "modfoundry"
	DefaultReleaseRepo          = "caravan-mod"
	DefaultSafePatcherPattern   = `^[A-Za-z0-9._ -]+\.exe$`
	DefaultConnectTimeoutSecs   = 10
	DefaultDownloadTimeoutSecs  = 600
)

// DefaultAssetPatterns maps platform names to the regex used to pick the
// release asset for that platform.
var DefaultAssetPatterns = map[string]string{
	"steam": `(?i)steam.*\.zip$`,
	"epic":  `(?i)epic.*\.zip$`,
}
