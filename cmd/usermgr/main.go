package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/go-while/go-webindex/internal/config"
	"github.com/go-while/go-webindex/internal/database"
	"github.com/go-while/go-webindex/internal/models"
	"github.com/go-while/go-webindex/internal/security"
)

var appVersion = "-unset-"

// readPassword is replaced in tests
var readPassword = func(prompt string) (string, error) {
	fmt.Print(prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(password), nil
}

func main() {
	config.AppVersion = appVersion
	log.Printf("go-webindex User Manager (version: %s)", config.AppVersion)
	var (
		configFile = flag.String("config", "", "YAML config file (optional, for database.path)")
		createUser = flag.Bool("create", false, "Create a new user")
		listUsers  = flag.Bool("list", false, "List all users")
		deleteUser = flag.Bool("delete", false, "Delete a user")
		updateUser = flag.Bool("update", false, "Update a user's password")
		username   = flag.String("username", "", "Username for user operations")
		display    = flag.String("display", "", "Display name for user creation")
	)
	flag.Parse()

	if !*createUser && !*listUsers && !*deleteUser && !*updateUser {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -create -username john -display \"John Doe\"\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -list\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -update -username john\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -delete -username john\n", os.Args[0])
		os.Exit(1)
	}

	mainConfig := config.NewDefaultConfig()
	if *configFile != "" {
		if err := mainConfig.LoadFile(*configFile); err != nil {
			log.Fatalf("%v", err)
		}
	}
	if err := mainConfig.ApplyEnv(); err != nil {
		log.Fatalf("Error reading environment: %v", err)
	}

	db, err := database.OpenDatabase(mainConfig.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatalf("Failed to apply database migrations: %v", err)
	}

	switch {
	case *createUser:
		if *username == "" {
			log.Fatal("Username is required for user creation")
		}
		if err := createNewUser(db, *username, *display); err != nil {
			log.Fatalf("Failed to create user: %v", err)
		}

	case *listUsers:
		if err := listAllUsers(db, os.Stdout); err != nil {
			log.Fatalf("Failed to list users: %v", err)
		}

	case *deleteUser:
		if *username == "" {
			log.Fatal("Username is required for user deletion")
		}
		if err := deleteExistingUser(db, *username, os.Stdin); err != nil {
			log.Fatalf("Failed to delete user: %v", err)
		}

	case *updateUser:
		if *username == "" {
			log.Fatal("Username is required for user update")
		}
		if err := updateUserPassword(db, *username); err != nil {
			log.Fatalf("Failed to update user: %v", err)
		}
	}
}

// promptNewPassword asks twice and validates the result
func promptNewPassword(prompt string) (string, error) {
	password, err := readPassword(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	confirmPassword, err := readPassword("Confirm password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password confirmation: %w", err)
	}
	if password != confirmPassword {
		return "", errors.New("passwords do not match")
	}
	if err := security.ValidatePassword(password); err != nil {
		return "", err
	}
	return password, nil
}

func createNewUser(db *database.Database, username, displayName string) error {
	if err := security.ValidateUsername(username); err != nil {
		return err
	}

	// Check if user already exists
	if _, err := db.GetUserByUsername(username); err == nil {
		return fmt.Errorf("user '%s': %w", username, security.ErrUserExists)
	} else if !errors.Is(err, security.ErrUserNotFound) {
		return err
	}

	password, err := promptNewPassword("Enter password: ")
	if err != nil {
		return err
	}

	hashedPassword, err := security.HashPassword(password)
	if err != nil {
		return err
	}

	// Set display name to username if not provided
	if displayName == "" {
		displayName = username
	}

	user := &models.User{
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: hashedPassword,
	}
	if err := db.InsertUser(user); err != nil {
		return err
	}

	fmt.Printf("User '%s' created successfully (ID: %d)\n", username, user.ID)
	return nil
}

func listAllUsers(db *database.Database, w io.Writer) error {
	users, err := db.GetAllUsers()
	if err != nil {
		return err
	}

	if len(users) == 0 {
		fmt.Fprintln(w, "No users found")
		return nil
	}

	fmt.Fprintf(w, "Found %d users:\n\n", len(users))
	fmt.Fprintf(w, "%-4s %-20s %-20s %s\n", "ID", "Username", "Display Name", "Created")
	fmt.Fprintf(w, "%-4s %-20s %-20s %s\n", "----", "--------", "------------", "-------")

	for _, user := range users {
		fmt.Fprintf(w, "%-4d %-20s %-20s %s\n",
			user.ID,
			truncate(user.Username, 20),
			truncate(user.DisplayName, 20),
			user.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	return nil
}

func deleteExistingUser(db *database.Database, username string, in io.Reader) error {
	user, err := db.GetUserByUsername(username)
	if err != nil {
		return err
	}

	// Confirm deletion
	fmt.Printf("Are you sure you want to delete user '%s' (ID: %d)? [y/N]: ", user.Username, user.ID)
	response, _ := bufio.NewReader(in).ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))

	if response != "y" && response != "yes" {
		fmt.Println("User deletion cancelled")
		return nil
	}

	if err := db.DeleteUser(username); err != nil {
		return err
	}
	fmt.Printf("User '%s' (ID: %d) deleted\n", user.Username, user.ID)
	return nil
}

func updateUserPassword(db *database.Database, username string) error {
	if _, err := db.GetUserByUsername(username); err != nil {
		return err
	}

	password, err := promptNewPassword(fmt.Sprintf("Enter new password for '%s': ", username))
	if err != nil {
		return err
	}

	hashedPassword, err := security.HashPassword(password)
	if err != nil {
		return err
	}

	if err := db.UpdateUserPassword(username, hashedPassword); err != nil {
		return err
	}

	fmt.Printf("Password updated successfully for user '%s'\n", username)
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
