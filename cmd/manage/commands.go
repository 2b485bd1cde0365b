package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/service"
)

// opener connects to the configured database.
type opener func() (*gorm.DB, *config.Config, error)

func newRootCommand(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:          "manage",
		Short:        "Foodgram maintenance commands",
		SilenceUsage: true,
	}

	root.AddCommand(newMigrateCommand(open))
	root.AddCommand(newLoadIngredientsCommand(open))
	root.AddCommand(newCreateTagCommand(open))
	root.AddCommand(newCreateUserCommand(open))
	return root
}

func newMigrateCommand(open opener) *cobra.Command {
	var down int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long: `Brings the schema up to date. Postgres runs the versioned SQL
migrations; sqlite and mysql use auto-migration of the models.

Examples:
  manage migrate
  manage migrate --down 1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, cfg, err := open()
			if err != nil {
				return err
			}
			dsn := database.PostgresDSN(cfg)

			if down > 0 {
				if err := database.RollbackMigrations(db, dsn, down); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rolled back %d migration(s)\n", down)
				return nil
			}

			if err := database.RunMigrations(db, dsn); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
			return nil
		},
	}

	cmd.Flags().IntVar(&down, "down", 0, "roll back this many migrations instead (postgres only)")
	return cmd
}

func newLoadIngredientsCommand(open opener) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "load-ingredients",
		Short: "Import ingredients from a JSON file",
		Long: `Reads a JSON array of {"name": ..., "measurement_unit": ...} objects and
inserts them. The whole file is rejected if any entry is invalid.

Example:
  manage load-ingredients --file data/ingredients.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			db, _, err := open()
			if err != nil {
				return err
			}

			n, err := service.NewIngredientService(db).Import(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d ingredients\n", n)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "data/ingredients.json", "path to the JSON file")
	return cmd
}

func newCreateTagCommand(open opener) *cobra.Command {
	var name, slug, color string

	cmd := &cobra.Command{
		Use:   "create-tag",
		Short: "Create a recipe tag",
		Long: `Creates a tag. Name, slug and color must each be unique; color is a
#RRGGBB hex value.

Example:
  manage create-tag --name Breakfast --slug breakfast --color "#E26C2D"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := open()
			if err != nil {
				return err
			}

			tag, err := service.NewTagService(db).Create(cmd.Context(), name, slug, color)
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created tag %d: %s (%s, %s)\n", tag.ID, tag.Name, tag.Slug, tag.Color)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "tag name")
	cmd.Flags().StringVar(&slug, "slug", "", "tag slug")
	cmd.Flags().StringVar(&color, "color", "", "tag color, #RRGGBB")
	for _, flag := range []string{"name", "slug", "color"} {
		_ = cmd.MarkFlagRequired(flag)
	}
	return cmd
}

func newCreateUserCommand(open opener) *cobra.Command {
	var in service.RegisterInput

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a user account",
		Long: `Creates a user with the same checks as registration. Staff users can
be used for administration.

Example:
  manage create-user --email admin@example.com --username admin \
    --first-name Site --last-name Admin --password '...' --staff`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := open()
			if err != nil {
				return err
			}

			user, err := service.NewUserService(db).Register(cmd.Context(), in)
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created user %d: %s <%s>\n", user.ID, user.Username, user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Email, "email", "", "email address, used to log in")
	cmd.Flags().StringVar(&in.Username, "username", "", "username")
	cmd.Flags().StringVar(&in.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&in.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&in.Password, "password", "", "password")
	cmd.Flags().BoolVar(&in.IsStaff, "staff", false, "mark the user as staff")
	for _, flag := range []string{"email", "username", "first-name", "last-name", "password"} {
		_ = cmd.MarkFlagRequired(flag)
	}
	return cmd
}

// describe flattens validation messages into one line per field.
func describe(err error) error {
	var verr *service.ValidationError
	if !errors.As(err, &verr) {
		return err
	}

	fields := make([]string, 0, len(verr.Fields))
	for field := range verr.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	lines := make([]string, len(fields))
	for i, field := range fields {
		lines[i] = field + ": " + strings.Join(verr.Fields[field], "; ")
	}
	return errors.New(strings.Join(lines, "\n"))
}
