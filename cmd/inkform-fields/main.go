package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/inkform/inkform/internal/pdf"
)

var (
	outputFormat = flag.String("format", "text", "Output format: text, json")
	verbose      = flag.Bool("verbose", false, "Enable verbose output")
	help         = flag.Bool("help", false, "Show help message")
)

// FieldInspectionResult is the complete result of a form inspection.
type FieldInspectionResult struct {
	FilePath   string           `json:"file_path"`
	PageCount  int              `json:"page_count,omitempty"`
	FieldCount int              `json:"field_count"`
	Fields     []pdf.NamedField `json:"fields"`
	Error      string           `json:"error,omitempty"`
}

func main() {
	flag.Parse()

	if *help {
		printHelp()
		return
	}

	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Error: PDF file path required\n\n")
		printUsage()
		os.Exit(1)
	}

	pdfPath := flag.Arg(0)
	if _, err := os.Stat(pdfPath); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: File not found: %s\n", pdfPath)
		os.Exit(1)
	}

	result, err := inspectFields(pdfPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error inspecting form: %v\n", err)
		os.Exit(1)
	}

	if err := outputResults(result); err != nil {
		fmt.Fprintf(os.Stderr, "Error outputting results: %v\n", err)
		os.Exit(1)
	}
}

func inspectFields(pdfPath string) (*FieldInspectionResult, error) {
	absPath, err := filepath.Abs(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	doc, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	logger := zerolog.Nop()
	if *verbose {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.DebugLevel)
	}

	result := &FieldInspectionResult{FilePath: absPath}

	pages, err := pdf.PageCount(doc)
	if err != nil {
		// A broken document still yields a result; the error rides along.
		result.Error = err.Error()
	} else {
		result.PageCount = pages
	}

	inspector := pdf.NewInspector(logger)
	result.Fields = inspector.Inspect(doc)
	result.FieldCount = len(result.Fields)

	return result, nil
}

func outputResults(result *FieldInspectionResult) error {
	switch *outputFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	case "text":
		return outputText(result)
	default:
		return fmt.Errorf("unsupported output format: %s", *outputFormat)
	}
}

func outputText(result *FieldInspectionResult) error {
	if result.Error != "" {
		fmt.Printf("Document could not be fully read: %s\n", result.Error)
	}
	if result.PageCount > 0 {
		fmt.Printf("Pages: %d\n", result.PageCount)
	}

	if result.FieldCount == 0 {
		fmt.Println("No named form fields detected")
		fmt.Println()
		fmt.Println("Documents without named fields are filled by coordinate overlay;")
		fmt.Println("this is expected for scanned or flattened forms.")
		return nil
	}

	fmt.Printf("Found %d named form field(s)\n\n", result.FieldCount)
	for i, f := range result.Fields {
		fmt.Printf("[%d] %s\n", i+1, f.Name)
		fmt.Printf("    Type: %s\n", f.Type)
	}

	return nil
}

func printHelp() {
	fmt.Println("Inkform Fields - List named form fields in a PDF document")
	fmt.Println()
	fmt.Println("Reports the fillable AcroForm fields of a document, the same detection")
	fmt.Println("the form-filling server uses to choose between the named-field and")
	fmt.Println("coordinate-overlay fill modes.")
	fmt.Println()
	printUsage()
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -format        Output format: text (default), json")
	fmt.Println("  -verbose       Enable verbose output")
	fmt.Println("  -help          Show this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  inkform-fields application.pdf")
	fmt.Println("  inkform-fields -format json visa-form.pdf")
}

func printUsage() {
	fmt.Println("USAGE:")
	fmt.Println("  inkform-fields [OPTIONS] <pdf_file>")
}

func init() {
	// Custom flag usage
	flag.Usage = func() {
		printHelp()
	}
}
