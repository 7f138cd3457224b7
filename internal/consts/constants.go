package consts

import (
	"os"
	"path/filepath"
)

// Constants for configuration paths and defaults
const (
	DefaultDirName    = ".calswitch"
	StateFileName     = "state.json"
	ConfigFileName    = "calswitch.yaml"
	DesiredFileName   = "calendars.yaml"
	MasterKeyFileName = "master.key"
	EnvPrefix         = "CALSWITCH_"
)

// GetCalswitchDir returns the root directory name for local calswitch data
func GetCalswitchDir() string {
	return DefaultDirName
}

// GetStateFilePath returns the path to the state file
func GetStateFilePath() string {
	return filepath.Join(GetCalswitchDir(), StateFileName)
}

// GetMasterKeyPath returns the default path for the master key (user home aware)
func GetMasterKeyPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DefaultDirName, MasterKeyFileName), nil
}
