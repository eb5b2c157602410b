// Command client is the SafeCloud file-management client: it dials a
// server, runs the STSM handshake under the operator's identity, and
// drives one file operation per invocation.
package main

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/safecloud-project/safecloud/internal/constants"
	"github.com/safecloud-project/safecloud/pkg/certstore"
	"github.com/safecloud-project/safecloud/pkg/connection"
	"github.com/safecloud-project/safecloud/pkg/cryptoutil"
	"github.com/safecloud-project/safecloud/pkg/protocol"
	"github.com/safecloud-project/safecloud/pkg/version"
)

var (
	flagIP       string
	flagPort     int
	flagUser     string
	flagKeyPath  string
	flagTrustDir string
	flagYes      bool
)

var rootCmd = &cobra.Command{
	Use:     "client",
	Short:   "SafeCloud secure file client",
	Version: version.Full(),
}

func init() {
	persistent := rootCmd.PersistentFlags()
	persistent.StringVar(&flagIP, "ip", constants.DefaultServerIP, "server address")
	persistent.IntVar(&flagPort, "port", constants.DefaultServerPort, "server port")
	persistent.StringVar(&flagUser, "user", "", "client username (required)")
	persistent.StringVar(&flagKeyPath, "key", "client.key.pem", "path to the client's long-term RSA private key")
	persistent.StringVar(&flagTrustDir, "trust", "trust", "directory of trusted server certificates")
	persistent.BoolVarP(&flagYes, "yes", "y", false, "answer yes to any overwrite/delete confirmation")
	rootCmd.MarkPersistentFlagRequired("user")

	rootCmd.AddCommand(uploadCmd, downloadCmd, deleteCmd, renameCmd, listCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "safecloud-client: %v\n", err)
		os.Exit(1)
	}
}

// connect dials the server and runs the handshake, returning a ready
// session. Every subcommand calls this once and closes the connection on
// return via the caller's defer.
func connect() (*connection.DialResult, error) {
	if len(flagUser) > constants.MaxClientNameLength {
		return nil, fmt.Errorf("username %q exceeds %d bytes", flagUser, constants.MaxClientNameLength)
	}

	privateKey, err := cryptoutil.LoadRSAPrivateKey(flagKeyPath)
	if err != nil {
		return nil, fmt.Errorf("loading client private key: %w", err)
	}
	trustStore, err := certstore.LoadDir(flagTrustDir)
	if err != nil {
		return nil, fmt.Errorf("loading trust store: %w", err)
	}

	addr := net.JoinHostPort(flagIP, strconv.Itoa(flagPort))
	result, err := connection.Dial("tcp", addr, privateKey, flagUser, trustStore)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	return result, nil
}

var uploadCmd = &cobra.Command{
	Use:   "upload <local-path> [remote-name]",
	Short: "Upload a local file to the server",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		localPath := args[0]
		remoteName := localPath
		if len(args) == 2 {
			remoteName = args[1]
		}

		info, err := os.Stat(localPath)
		if err != nil {
			return fmt.Errorf("stat %s: %w", localPath, err)
		}
		file, err := os.Open(localPath)
		if err != nil {
			return fmt.Errorf("opening %s: %w", localPath, err)
		}
		defer file.Close()

		result, err := connect()
		if err != nil {
			return err
		}
		defer result.Conn.Close()

		size := uint64(info.Size())
		confirm := confirmOverwritePrompt()
		if err := result.Session.Upload(remoteName, file, size, info.ModTime(), confirm); err != nil {
			return fmt.Errorf("upload failed: %w", err)
		}
		fmt.Printf("uploaded %s -> %s (%d bytes)\n", localPath, remoteName, size)
		return result.Session.Bye()
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download <remote-name> [local-path]",
	Short: "Download a file from the server",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		remoteName := args[0]
		localPath := remoteName
		if len(args) == 2 {
			localPath = args[1]
		}

		result, err := connect()
		if err != nil {
			return err
		}
		defer result.Conn.Close()

		file, err := os.OpenFile(localPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
		if err != nil {
			return fmt.Errorf("creating %s: %w", localPath, err)
		}
		if err := result.Session.Download(remoteName, file, confirmProceedPrompt()); err != nil {
			file.Close()
			os.Remove(localPath)
			return fmt.Errorf("download failed: %w", err)
		}
		info, statErr := file.Stat()
		closeErr := file.Close()
		if statErr != nil {
			return fmt.Errorf("stat %s: %w", localPath, statErr)
		}
		if closeErr != nil {
			return fmt.Errorf("writing %s: %w", localPath, closeErr)
		}
		fmt.Printf("downloaded %s -> %s (%d bytes)\n", remoteName, localPath, info.Size())
		return result.Session.Bye()
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <remote-name>",
	Short: "Delete a file on the server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := connect()
		if err != nil {
			return err
		}
		defer result.Conn.Close()

		if err := result.Session.Delete(args[0], confirmProceedPrompt()); err != nil {
			return fmt.Errorf("delete failed: %w", err)
		}
		fmt.Printf("deleted %s\n", args[0])
		return result.Session.Bye()
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename <old-name> <new-name>",
	Short: "Rename a file on the server",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := connect()
		if err != nil {
			return err
		}
		defer result.Conn.Close()

		if err := result.Session.Rename(args[0], args[1]); err != nil {
			return fmt.Errorf("rename failed: %w", err)
		}
		fmt.Printf("renamed %s -> %s\n", args[0], args[1])
		return result.Session.Bye()
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List files stored on the server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := connect()
		if err != nil {
			return err
		}
		defer result.Conn.Close()

		entries, err := result.Session.List()
		if err != nil {
			return fmt.Errorf("list failed: %w", err)
		}
		for _, entry := range entries {
			mtime := time.Unix(int64(entry.Mtime), 0).Format(time.RFC3339)
			fmt.Printf("%-40s %10d  %s\n", entry.Name, entry.Size, mtime)
		}
		return result.Session.Bye()
	},
}

// confirmOverwritePrompt builds the callback Upload invokes when the
// server reports an existing file at the target name. With --yes it
// approves unconditionally; otherwise it asks on stdin.
func confirmOverwritePrompt() func(protocol.FileMetadata) bool {
	return func(existing protocol.FileMetadata) bool {
		if flagYes {
			return true
		}
		fmt.Printf("%s already exists (%d bytes) - overwrite? [y/N] ", existing.Name, existing.Size)
		return readYesNo()
	}
}

// confirmProceedPrompt builds the callback Download/Delete invoke after
// the server announces the target file's metadata.
func confirmProceedPrompt() func(protocol.FileMetadata) bool {
	return func(meta protocol.FileMetadata) bool {
		if flagYes {
			return true
		}
		fmt.Printf("%s (%d bytes) - proceed? [y/N] ", meta.Name, meta.Size)
		return readYesNo()
	}
}

func readYesNo() bool {
	var answer string
	fmt.Scanln(&answer)
	return answer == "y" || answer == "Y" || answer == "yes"
}
