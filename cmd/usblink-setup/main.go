package main

import (
	"fmt"
	"os"
)

// Version will be set at build time via -ldflags
var Version = "v0.1.0"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version":
			fmt.Printf("usblink-setup %s\n", Version)
			fmt.Println("Installer for the USBLink USB-over-network app")
			return
		case "doctor":
			// Handle the doctor subcommand
			if err := runDoctor(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		case "install":
			if err := runInstall(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		case "--help", "-h", "help":
			printUsage()
			return
		default:
			fmt.Fprintf(os.Stderr, "Error: unknown command: %s\n", os.Args[1])
			printUsage()
			os.Exit(1)
		}
	}

	// Default: interactive install.
	if err := runInstall(nil); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("╔══════════════════════════════════════════════════════════╗")
	fmt.Println("║  usblink-setup - USBLink installer                       ║")
	fmt.Println("╚══════════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  usblink-setup              Install USBLink interactively")
	fmt.Println("  usblink-setup install      Same as running without arguments")
	fmt.Println("  usblink-setup doctor       Report platform and prerequisite status")
	fmt.Println("  usblink-setup --version    Show version information")
}
