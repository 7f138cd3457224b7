package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/melih-ucgun/calswitch/internal/consts"
	"github.com/melih-ucgun/calswitch/internal/crypto"
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage encrypted secrets",
	Long: `Utilities for generating keys and encrypting/decrypting the API token,
cookie and JWT secret stored in the config file.`,
	// Secrets must work before a valid config exists.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
}

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a new master key",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := crypto.GenerateKey()
		if err != nil {
			return fmt.Errorf("failed to generate key: %w", err)
		}
		return emitKey(cmd, key)
	},
}

var deriveCmd = &cobra.Command{
	Use:   "derive <passphrase> <salt>",
	Short: "Derive a master key from a passphrase",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := crypto.DeriveKey(args[0], args[1])
		if err != nil {
			return fmt.Errorf("failed to derive key: %w", err)
		}
		return emitKey(cmd, key)
	},
}

var encryptCmd = &cobra.Command{
	Use:   "encrypt [value]",
	Short: "Encrypt a value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := getMasterKey()
		if err != nil {
			return err
		}

		encrypted, err := crypto.Encrypt(args[0], key)
		if err != nil {
			return fmt.Errorf("encryption failed: %w", err)
		}

		pterm.Success.Println("Encrypted Value:")
		fmt.Println(encrypted)
		return nil
	},
}

var decryptCmd = &cobra.Command{
	Use:   "decrypt [encrypted_value]",
	Short: "Decrypt a value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := getMasterKey()
		if err != nil {
			return err
		}

		decrypted, err := crypto.Decrypt(args[0], key)
		if err != nil {
			return fmt.Errorf("decryption failed: %w", err)
		}

		pterm.Success.Println("Decrypted Value:")
		fmt.Println(decrypted)
		return nil
	},
}

func emitKey(cmd *cobra.Command, key string) error {
	save, _ := cmd.Flags().GetBool("save")
	if !save {
		pterm.Success.Println("Master Key:")
		fmt.Println(key)
		pterm.Info.Printf("Save this key to ~/%s/%s or set %sMASTER_KEY environment variable.\n", consts.DefaultDirName, consts.MasterKeyFileName, consts.EnvPrefix)
		return nil
	}

	keyPath, err := consts.GetMasterKeyPath()
	if err != nil {
		return err
	}
	if err := crypto.SaveMasterKey(keyPath, key); err != nil {
		return err
	}
	pterm.Success.Println("Master key saved to", keyPath)
	return nil
}

func getMasterKey() (string, error) {
	keyPath, _ := consts.GetMasterKeyPath()
	key, err := crypto.LoadMasterKey(os.Getenv(consts.EnvPrefix+"MASTER_KEY"), keyPath)
	if err != nil {
		return "", err
	}
	if key == "" {
		pterm.Info.Printf("Please set %sMASTER_KEY or create ~/%s/%s\n", consts.EnvPrefix, consts.DefaultDirName, consts.MasterKeyFileName)
		return "", errors.New("master key not found")
	}
	return key, nil
}

func init() {
	rootCmd.AddCommand(secretCmd)
	secretCmd.AddCommand(keygenCmd, deriveCmd, encryptCmd, decryptCmd)
	for _, c := range []*cobra.Command{keygenCmd, deriveCmd} {
		c.Flags().Bool("save", false, "write the key to the master key file instead of printing it")
	}
}
