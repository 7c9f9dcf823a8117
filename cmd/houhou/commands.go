package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/houhousishu/houhou/internal/catalog"
	"github.com/houhousishu/houhou/internal/config"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// --- services ---

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List, add or seed courses",
}

var servicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List courses",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return withApp(cmd.Context(), func(a *app) error {
			services, err := a.catalog.Services.List(cmd.Context())
			if err != nil {
				return err
			}
			printBackendNotice(a.catalog.Backend())
			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, services)
			}
			if len(services) == 0 {
				fmt.Fprintln(out, "No services.")
				return nil
			}
			for _, s := range services {
				fmt.Fprintf(out, "%s  %s %s\n", colorize(colorBold, s.Title), colorize(colorDim, "["+catalog.IconGlyph(s.IconType)+"]"), s.ID)
				if s.Description != "" {
					fmt.Fprintf(out, "    %s\n", s.Description)
				}
			}
			return nil
		})
	},
}

var servicesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a course (requires login)",
	Long: `Add a course (requires login).

Examples:
  houhou services add --title "親子共讀" --description "每週一次的共讀時光" --icon BookOpen
  houhou services add --title "自然手作" --details "撿拾落葉
壓花書籤"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		description, _ := cmd.Flags().GetString("description")
		long, _ := cmd.Flags().GetString("long-description")
		icon, _ := cmd.Flags().GetString("icon")
		details, _ := cmd.Flags().GetString("details")
		image, _ := cmd.Flags().GetString("image")

		if title == "" {
			return fmt.Errorf("--title is required")
		}

		return withApp(cmd.Context(), func(a *app) error {
			if _, err := a.requireSession(cmd.Context()); err != nil {
				return err
			}
			created, err := a.content.AddService(cmd.Context(), catalog.Service{
				Title:           title,
				Description:     description,
				LongDescription: long,
				IconType:        icon,
				Details:         catalog.SplitLines(details),
				FullImage:       image,
			})
			if err != nil && created.ID == "" {
				return err
			}
			if err != nil {
				printWarning("added, but refreshing content failed: %v", err)
			}
			printBackendNotice(a.catalog.Backend())
			printSuccess("Added service %s (%s)", created.Title, created.ID)
			return nil
		})
	},
}

var servicesSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the default courses if there are none",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			n, err := a.catalog.Services.Seed(cmd.Context(), catalog.DefaultServices())
			if err != nil {
				return err
			}
			printBackendNotice(a.catalog.Backend())
			if n == 0 {
				printStatus("Services", "already present, nothing seeded")
				return nil
			}
			printSuccess("Seeded %d services on the %s backend", n, a.catalog.Backend())
			return nil
		})
	},
}

func init() {
	servicesListCmd.Flags().Bool("json", false, "print JSON")
	servicesAddCmd.Flags().String("title", "", "course title")
	servicesAddCmd.Flags().String("description", "", "short description")
	servicesAddCmd.Flags().String("long-description", "", "long description")
	servicesAddCmd.Flags().String("icon", catalog.DefaultIconType, "icon name ("+strings.Join(catalog.IconTypes, ", ")+")")
	servicesAddCmd.Flags().String("details", "", "details, one per line")
	servicesAddCmd.Flags().String("image", "", "cover image URL")
	servicesCmd.AddCommand(servicesListCmd)
	servicesCmd.AddCommand(servicesAddCmd)
	servicesCmd.AddCommand(servicesSeedCmd)
}

// --- resources ---

var resourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "List, add or seed articles",
}

var resourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List articles",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		category, _ := cmd.Flags().GetString("category")
		if category != "" {
			if _, err := catalog.ParseCategory(category); err != nil {
				return err
			}
		}

		return withApp(cmd.Context(), func(a *app) error {
			resources, err := a.catalog.Resources.List(cmd.Context())
			if err != nil {
				return err
			}
			printBackendNotice(a.catalog.Backend())

			filtered := make([]catalog.Resource, 0, len(resources))
			for _, r := range resources {
				if category == "" || string(r.Category) == category {
					filtered = append(filtered, r)
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, filtered)
			}
			if len(filtered) == 0 {
				fmt.Fprintln(out, "No articles.")
				return nil
			}
			for _, r := range filtered {
				fmt.Fprintf(out, "%s  %s %s\n", colorize(colorBold, r.Title), colorize(colorDim, "["+string(r.Category)+"]"), r.ID)
				if r.Date != "" || r.Author != "" {
					fmt.Fprintf(out, "    %s %s\n", r.Date, r.Author)
				}
			}
			return nil
		})
	},
}

var resourcesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Publish an article (requires login)",
	Long: `Publish an article (requires login).

Examples:
  houhou resources add --title "等待的藝術" --category parenting --content "第一段
第二段" --tags "慢養,情緒調節"
  houhou resources add --title "繪本推薦" --category reading --file ./article.txt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		category, _ := cmd.Flags().GetString("category")
		summary, _ := cmd.Flags().GetString("summary")
		image, _ := cmd.Flags().GetString("image")
		author, _ := cmd.Flags().GetString("author")
		tags, _ := cmd.Flags().GetString("tags")
		content, _ := cmd.Flags().GetString("content")
		file, _ := cmd.Flags().GetString("file")

		if title == "" {
			return fmt.Errorf("--title is required")
		}
		if content == "" && file == "" {
			return fmt.Errorf("one of --content or --file is required")
		}
		if file != "" {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading file: %w", err)
			}
			content = string(data)
		}

		return withApp(cmd.Context(), func(a *app) error {
			if _, err := a.requireSession(cmd.Context()); err != nil {
				return err
			}
			created, err := a.content.AddResource(cmd.Context(), catalog.Resource{
				Category: catalog.Category(category),
				Title:    title,
				Summary:  summary,
				Image:    image,
				Author:   author,
				Tags:     catalog.SplitTags(tags),
				Content:  catalog.SplitLines(content),
			})
			if err != nil && created.ID == "" {
				return err
			}
			if err != nil {
				printWarning("published, but refreshing content failed: %v", err)
			}
			printBackendNotice(a.catalog.Backend())
			printSuccess("Published %s (%s)", created.Title, created.ID)
			return nil
		})
	},
}

var resourcesSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the default articles if there are none",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			n, err := a.catalog.Resources.Seed(cmd.Context(), catalog.DefaultResources())
			if err != nil {
				return err
			}
			printBackendNotice(a.catalog.Backend())
			if n == 0 {
				printStatus("Resources", "already present, nothing seeded")
				return nil
			}
			printSuccess("Seeded %d resources on the %s backend", n, a.catalog.Backend())
			return nil
		})
	},
}

func init() {
	resourcesListCmd.Flags().Bool("json", false, "print JSON")
	resourcesListCmd.Flags().String("category", "", "only this category (parenting, reading, crafts)")
	resourcesAddCmd.Flags().String("title", "", "article title")
	resourcesAddCmd.Flags().String("category", string(catalog.CategoryParenting), "parenting, reading or crafts")
	resourcesAddCmd.Flags().String("summary", "", "one-line summary")
	resourcesAddCmd.Flags().String("image", "", "cover image URL")
	resourcesAddCmd.Flags().String("author", "", "author (default "+catalog.DefaultAuthor+")")
	resourcesAddCmd.Flags().String("tags", "", "comma-separated tags")
	resourcesAddCmd.Flags().String("content", "", "article body, one paragraph per line")
	resourcesAddCmd.Flags().String("file", "", "read the article body from a file")
	resourcesCmd.AddCommand(resourcesListCmd)
	resourcesCmd.AddCommand(resourcesAddCmd)
	resourcesCmd.AddCommand(resourcesSeedCmd)
}

// --- auth ---

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in; the session is kept until logout",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")

		if email == "" {
			return fmt.Errorf("--email is required")
		}
		if password == "" {
			fmt.Fprint(statusOut, "Password: ")
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("reading password: %w", err)
			}
			password = strings.TrimRight(line, "\r\n")
		}

		return withApp(cmd.Context(), func(a *app) error {
			s, err := a.catalog.Auth.Login(cmd.Context(), email, password)
			if err != nil {
				if catalog.IsCredentialError(err) {
					return fmt.Errorf("login failed: %w", err)
				}
				return err
			}
			printBackendNotice(a.catalog.Backend())
			printSuccess("Signed in as %s", displayName(s))
			return nil
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and retry the content API on the next command",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			if err := a.catalog.Auth.Logout(cmd.Context()); err != nil {
				return err
			}
			printSuccess("Signed out")
			return nil
		})
	},
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Show who is signed in",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return withApp(cmd.Context(), func(a *app) error {
			s, err := a.catalog.Auth.Session(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if s == nil {
				fmt.Fprintln(out, "Not signed in.")
				return nil
			}
			if asJSON {
				return printJSON(out, s.User())
			}
			fmt.Fprintln(out, displayName(*s))
			return nil
		})
	},
}

func displayName(s catalog.Session) string {
	name := s.Email
	if s.Name != "" {
		name = s.Name + " <" + s.Email + ">"
	}
	if s.Token == "" {
		name += " (local)"
	}
	return name
}

func init() {
	loginCmd.Flags().String("email", "", "account email")
	loginCmd.Flags().String("password", "", "password (read from stdin when omitted)")
	sessionCmd.Flags().Bool("json", false, "print JSON")
}

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Ask 厚厚小幫手 a question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		message := strings.Join(args, " ")
		return withApp(cmd.Context(), func(a *app) error {
			reply, err := a.companion.Reply(cmd.Context(), nil, message)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply)
			return nil
		})
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(out, "  %s = %s %s\n", colorize(colorBold, k.Key), k.Value, colorize(colorDim, "("+k.EnvVar+")"))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value in the config file.\n\nKeys: " + strings.Join(config.ValidKeys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configSetSecretCmd = &cobra.Command{
	Use:   "set-secret <key> <value>",
	Short: "Store a secret (" + strings.Join(config.SecretKeys(), ", ") + ")",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetSecret(args[0], args[1]); err != nil {
			return err
		}
		printSuccess("Stored %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configSetSecretCmd)
}
