package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/kozaktomas/face-matcher/internal/config"
	"github.com/kozaktomas/face-matcher/internal/constants"
	"github.com/kozaktomas/face-matcher/internal/gallery"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Manage the reference database",
	Long: `Manage the reference database: one folder per person holding reference
images and a person.yaml with optional details.`,
}

var galleryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List people in the reference database",
	Args:  cobra.NoArgs,
	RunE:  runGalleryList,
}

var galleryAddCmd = &cobra.Command{
	Use:   "add <image>",
	Short: "Add a reference image for a person",
	Long: `Add a reference image for a person. The person is created when needed;
details given for an existing person fill in the fields that are still empty.

Examples:
  face-matcher gallery add jiri.jpg --person "Jiri Novak" --age 42`,
	Args: cobra.ExactArgs(1),
	RunE: runGalleryAdd,
}

var galleryImportCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Bulk import reference images, one person per subfolder",
	Long: `Import every JPEG and PNG image from the subfolders of <dir>. Each subfolder
name becomes the person name. Images already in the database are skipped.

Examples:
  # photos/Jiri Novak/*.jpg, photos/Eva Dvorakova/*.jpg, ...
  face-matcher gallery import photos/`,
	Args: cobra.ExactArgs(1),
	RunE: runGalleryImport,
}

var galleryUpdateCmd = &cobra.Command{
	Use:   "update <person_id>",
	Short: "Update the details of a person",
	Args:  cobra.ExactArgs(1),
	RunE:  runGalleryUpdate,
}

var galleryRemoveCmd = &cobra.Command{
	Use:   "remove <person_id>",
	Short: "Remove a person and all of their reference images",
	Args:  cobra.ExactArgs(1),
	RunE:  runGalleryRemove,
}

func init() {
	rootCmd.AddCommand(galleryCmd)
	galleryCmd.AddCommand(galleryListCmd, galleryAddCmd, galleryImportCmd, galleryUpdateCmd, galleryRemoveCmd)

	galleryCmd.PersistentFlags().String("db", constants.DefaultDatabasePath, "Reference database folder")

	galleryListCmd.Flags().Bool("json", false, "Print people as JSON")

	for _, c := range []*cobra.Command{galleryAddCmd, galleryUpdateCmd} {
		c.Flags().String("person", "", "Person name (folder name is derived from it)")
		c.Flags().String("name", "", "Full name")
		c.Flags().Int("age", 0, "Age")
		c.Flags().String("email", "", "Email")
		c.Flags().String("phone", "", "Phone")
		c.Flags().String("notes", "", "Notes")
	}
	galleryAddCmd.Flags().String("added-by", "", "Name of whoever adds the image")
	galleryAddCmd.Flags().String("added-by-email", "", "Email of whoever adds the image")
}

func openGallery(cmd *cobra.Command) *gallery.Store {
	cfg := config.Load()
	root := cfg.Matcher.DatabasePath
	if cmd.Flags().Changed("db") {
		root = mustGetString(cmd, "db")
	}
	return gallery.NewStore(root)
}

// detailsFromFlags applies the detail flags the user set on top of base.
func detailsFromFlags(cmd *cobra.Command, base gallery.Details) (gallery.Details, error) {
	flags := cmd.Flags()
	if flags.Changed("person") {
		base.PersonName = mustGetString(cmd, "person")
	}
	if flags.Changed("name") {
		base.Name = mustGetString(cmd, "name")
	}
	if flags.Changed("age") {
		age := mustGetInt(cmd, "age")
		if age < 0 {
			return base, errors.New("age must be a non-negative number")
		}
		base.Age = age
	}
	if flags.Changed("email") {
		base.Email = mustGetString(cmd, "email")
	}
	if flags.Changed("phone") {
		base.Phone = mustGetString(cmd, "phone")
	}
	if flags.Changed("notes") {
		base.Notes = mustGetString(cmd, "notes")
	}
	return base, nil
}

func runGalleryList(cmd *cobra.Command, args []string) error {
	store := openGallery(cmd)
	people, err := store.List()
	if err != nil {
		return fmt.Errorf("listing %s: %w", store.Root(), err)
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(people)
	}

	if len(people) == 0 {
		fmt.Printf("No people in %s\n", store.Root())
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPERSON\tAGE\tIMAGES")
	fmt.Fprintln(w, "--\t------\t---\t------")
	for _, p := range people {
		age := ""
		if p.Age > 0 {
			age = fmt.Sprint(p.Age)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", p.ID, p.PersonName, age, len(p.Images))
	}
	w.Flush()

	fmt.Printf("\n%d people in %s\n", len(people), store.Root())
	return nil
}

func runGalleryAdd(cmd *cobra.Command, args []string) error {
	details, err := detailsFromFlags(cmd, gallery.Details{})
	if err != nil {
		return err
	}
	if strings.TrimSpace(details.PersonName) == "" {
		return errors.New("--person is required")
	}

	var addedBy *gallery.AddedBy
	if name, email := mustGetString(cmd, "added-by"), mustGetString(cmd, "added-by-email"); name != "" || email != "" {
		addedBy = &gallery.AddedBy{Name: name, Email: email}
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	store := openGallery(cmd)
	person, err := store.Add(details, addedBy, f)
	if err != nil {
		return fmt.Errorf("adding %s: %w", args[0], err)
	}

	fmt.Printf("Added %s as %s (%d reference images)\n", person.PersonName, person.ID, len(person.Images))
	return nil
}

// importItem is one image found by gallery import.
type importItem struct {
	person string
	path   string
}

func collectImportItems(dir string, accepts func(string) bool) ([]importItem, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var items []importItem
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		files, err := os.ReadDir(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}
		for _, file := range files {
			if file.IsDir() || !accepts(file.Name()) {
				continue
			}
			items = append(items, importItem{
				person: entry.Name(),
				path:   filepath.Join(dir, entry.Name(), file.Name()),
			})
		}
	}
	return items, nil
}

func runGalleryImport(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	items, err := collectImportItems(args[0], cfg.Options.AcceptsUpload)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Printf("No images found in subfolders of %s\n", args[0])
		return nil
	}

	store := openGallery(cmd)
	fmt.Printf("Importing %d images into %s\n\n", len(items), store.Root())

	bar := progressbar.NewOptions(len(items),
		progressbar.OptionSetDescription("Importing"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	var added, duplicates int
	var failures []string
	for _, item := range items {
		err := importOne(store, item)
		switch {
		case err == nil:
			added++
		case errors.Is(err, gallery.ErrDuplicateImage):
			duplicates++
		default:
			failures = append(failures, fmt.Sprintf("%s: %v", item.path, err))
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	fmt.Printf("\n\nAdded: %d, skipped duplicates: %d, failed: %d\n", added, duplicates, len(failures))
	for _, f := range failures {
		fmt.Printf("  %s\n", f)
	}
	return nil
}

func importOne(store *gallery.Store, item importItem) error {
	f, err := os.Open(item.path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = store.Add(gallery.Details{PersonName: item.person}, nil, f)
	return err
}

func runGalleryUpdate(cmd *cobra.Command, args []string) error {
	store := openGallery(cmd)
	person, err := store.Get(args[0])
	if err != nil {
		return err
	}

	details, err := detailsFromFlags(cmd, person.Details)
	if err != nil {
		return err
	}
	person, err = store.Update(args[0], details)
	if err != nil {
		return fmt.Errorf("updating %s: %w", args[0], err)
	}

	fmt.Printf("Updated %s (%s)\n", person.PersonName, person.ID)
	return nil
}

func runGalleryRemove(cmd *cobra.Command, args []string) error {
	store := openGallery(cmd)
	if err := store.Delete(args[0]); err != nil {
		return fmt.Errorf("removing %s: %w", args[0], err)
	}
	fmt.Printf("Removed %s from %s\n", args[0], store.Root())
	return nil
}
