package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/artpar/zentypes/adapters/hasher"
	"github.com/artpar/zentypes/adapters/random"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the POST /generate bearer token",
	Long: `Create bearer tokens for the preview server.

The server stores only a bcrypt hash in server.token_hash.

Examples:
  zentypes token new        # print a new token and its hash
  zentypes token hash       # hash an existing token (prompted)`,
}

var tokenNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Generate a token and its hash",
	RunE:  runTokenNew,
}

var tokenHashCmd = &cobra.Command{
	Use:   "hash",
	Short: "Hash a token read from the terminal or stdin",
	RunE:  runTokenHash,
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.AddCommand(tokenNewCmd)
	tokenCmd.AddCommand(tokenHashCmd)
}

func runTokenNew(cmd *cobra.Command, args []string) error {
	tok, err := random.Token(random.Real{}, random.DefaultTokenBytes)
	if err != nil {
		return err
	}
	hash, err := getHasher().Hash(tok)
	if err != nil {
		return fmt.Errorf("hash token: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "token:       %s\n", tok)
	fmt.Fprintf(out, "token_hash:  %s\n", hash)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Put token_hash under server: in your config. The token is not shown again.")
	return nil
}

func runTokenHash(cmd *cobra.Command, args []string) error {
	tok, err := promptToken("Token: ")
	if err != nil {
		return err
	}
	if tok == "" {
		return fmt.Errorf("empty token")
	}
	hash, err := getHasher().Hash(tok)
	if err != nil {
		return fmt.Errorf("hash token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}

// promptToken reads a token without echo on a terminal, or one line from
// piped stdin.
func promptToken(prompt string) (string, error) {
	fd := int(syscall.Stdin)
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("failed to read token: %w", err)
		}
		return strings.TrimSpace(line), nil
	}

	fmt.Fprint(os.Stderr, prompt)
	tok, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return strings.TrimSpace(string(tok)), nil
}

// getHasher returns the bcrypt hasher used by the server.
func getHasher() *hasher.Bcrypt {
	return hasher.NewBcrypt(bcrypt.DefaultCost)
}
