package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/medullahq/medulla/internal/service"
)

// entityFlags maps the shared create/update flags onto a flag set.
type entityFlags struct {
	content      string
	tags         []string
	status       string
	priority     string
	dueDate      string
	assignee     string
	context      string
	consequences []string
	noteType     string
	template     string
	outputSchema string
	path         string
	url          string
	linkType     string
}

func (f *entityFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.content, "content", "", "body text")
	fs.StringSliceVar(&f.tags, "tags", nil, "comma-separated tags")
	fs.StringVar(&f.status, "status", "", "status (type-specific enum)")
	fs.StringVar(&f.priority, "priority", "", "task priority: low, normal, high, urgent")
	fs.StringVar(&f.dueDate, "due", "", "task due date (YYYY-MM-DD)")
	fs.StringVar(&f.assignee, "assignee", "", "task assignee")
	fs.StringVar(&f.context, "context", "", "decision context")
	fs.StringSliceVar(&f.consequences, "consequence", nil, "decision consequence (repeatable)")
	fs.StringVar(&f.noteType, "note-type", "", "note category")
	fs.StringVar(&f.template, "template", "", "prompt template text")
	fs.StringVar(&f.outputSchema, "output-schema", "", "prompt output JSON schema")
	fs.StringVar(&f.path, "path", "", "component path")
	fs.StringVar(&f.url, "url", "", "link URL")
	fs.StringVar(&f.linkType, "link-type", "", "link category")
}

func (f *entityFlags) input(title string) service.EntityInput {
	return service.EntityInput{
		Title:        title,
		Content:      f.content,
		Tags:         f.tags,
		Status:       f.status,
		Priority:     f.priority,
		DueDate:      f.dueDate,
		Assignee:     f.assignee,
		Context:      f.context,
		Consequences: f.consequences,
		NoteType:     f.noteType,
		Template:     f.template,
		OutputSchema: f.outputSchema,
		Path:         f.path,
		URL:          f.url,
		LinkType:     f.linkType,
	}
}

// patch builds an EntityPatch from the flags the user actually set.
func (f *entityFlags) patch(fs *pflag.FlagSet, title *string) service.EntityPatch {
	var p service.EntityPatch
	p.Title = title
	if fs.Changed("content") {
		p.Content = &f.content
	}
	if fs.Changed("tags") {
		p.Tags = &f.tags
	}
	if fs.Changed("status") {
		p.Status = &f.status
	}
	if fs.Changed("priority") {
		p.Priority = &f.priority
	}
	if fs.Changed("due") {
		p.DueDate = &f.dueDate
	}
	if fs.Changed("assignee") {
		p.Assignee = &f.assignee
	}
	if fs.Changed("context") {
		p.Context = &f.context
	}
	if fs.Changed("consequence") {
		p.Consequences = &f.consequences
	}
	if fs.Changed("note-type") {
		p.NoteType = &f.noteType
	}
	if fs.Changed("template") {
		p.Template = &f.template
	}
	if fs.Changed("output-schema") {
		p.OutputSchema = &f.outputSchema
	}
	if fs.Changed("path") {
		p.Path = &f.path
	}
	if fs.Changed("url") {
		p.URL = &f.url
	}
	if fs.Changed("link-type") {
		p.LinkType = &f.linkType
	}
	return p
}

func printJSON(cmd *cobra.Command, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(raw))
	return nil
}

// AddCmd returns the add command.
func AddCmd() *cobra.Command {
	var flags entityFlags

	cmd := &cobra.Command{
		Use:   "add <type> <title>",
		Short: "Create an entity",
		Long:  "Create a decision, task, note, prompt, component or link.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService()
			if err != nil {
				return err
			}
			defer svc.Close()

			title := strings.Join(args[1:], " ")
			e, err := svc.CreateEntity(cmd.Context(), args[0], flags.input(title))
			if err != nil {
				return err
			}
			m := e.Meta()
			green.Fprintf(cmd.OutOrStdout(), "Created %s #%d (%s)\n",
				e.EntityType(), m.SequenceNumber, m.ShortID())
			return nil
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

// GetCmd returns the get command.
func GetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <ref>",
		Short: "Show one entity as JSON",
		Long:  "Ref is a full id, a unique id prefix (min 4 chars) or type:sequence.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService()
			if err != nil {
				return err
			}
			defer svc.Close()

			e, err := svc.GetEntity(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, e)
		},
	}
}

// ListCmd returns the list command.
func ListCmd() *cobra.Command {
	var limit, offset int
	var status, tag string

	cmd := &cobra.Command{
		Use:   "list <type>",
		Short: "List entities of one type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService()
			if err != nil {
				return err
			}
			defer svc.Close()

			list, total, err := svc.ListEntities(args[0], status, tag, limit, offset)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range list {
				m := e.Meta()
				fmt.Fprintf(out, "#%-4d %-8s %s\n", m.SequenceNumber, m.ShortID(), m.Title)
			}
			if len(list) == 0 {
				fmt.Fprintf(out, "no %ss\n", args[0])
			} else if total > len(list) {
				fmt.Fprintf(out, "(%d of %d)\n", len(list), total)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "max results (default 50, max 100)")
	cmd.Flags().IntVar(&offset, "offset", 0, "results to skip")
	cmd.Flags().StringVar(&status, "status", "", "only entities with this status")
	cmd.Flags().StringVar(&tag, "tag", "", "only entities carrying this tag")
	return cmd
}

// UpdateCmd returns the update command.
func UpdateCmd() *cobra.Command {
	var flags entityFlags
	var title string
	var addTags, removeTags []string

	cmd := &cobra.Command{
		Use:   "update <ref>",
		Short: "Update fields of an entity",
		Long:  "Only flags you pass are changed; passing an empty value clears the field.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService()
			if err != nil {
				return err
			}
			defer svc.Close()

			var titlePtr *string
			if cmd.Flags().Changed("title") {
				titlePtr = &title
			}
			patch := flags.patch(cmd.Flags(), titlePtr)
			patch.AddTags = addTags
			patch.RemoveTags = removeTags
			e, err := svc.UpdateEntity(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			return printJSON(cmd, e)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringSliceVar(&addTags, "add-tag", nil, "tag to add (repeatable)")
	cmd.Flags().StringSliceVar(&removeTags, "remove-tag", nil, "tag to remove (repeatable)")
	flags.register(cmd.Flags())
	return cmd
}

// DeleteCmd returns the delete command.
func DeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <ref>",
		Short: "Delete an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService()
			if err != nil {
				return err
			}
			defer svc.Close()

			if err := svc.DeleteEntity(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

// SearchCmd returns the search command.
func SearchCmd() *cobra.Command {
	var mode string
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search entities",
		Long: `Search the project. The query supports filter prefixes:
type:<t> status:<s> tag:<t> created:>YYYY-MM-DD created:<YYYY-MM-DD`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService()
			if err != nil {
				return err
			}
			defer svc.Close()

			results, err := svc.Search(cmd.Context(), strings.Join(args, " "), mode, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range results {
				fmt.Fprintf(out, "%-10s %-8s %s\n", r.Type, shortRef(r.ID), r.Title)
				if r.Snippet != "" {
					fmt.Fprintf(out, "           %s\n", r.Snippet)
				}
			}
			if len(results) == 0 {
				fmt.Fprintln(out, "no matches")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "fulltext", "search mode: fulltext, semantic or hybrid")
	cmd.Flags().IntVar(&limit, "limit", 0, "max results (default 50, max 100)")
	return cmd
}

func shortRef(id string) string {
	if len(id) > 7 {
		return id[:7]
	}
	return id
}
