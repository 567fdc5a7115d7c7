package cli

import (
	"adventcal/client"
	"fmt"

	"github.com/spf13/cobra"
)

func newCalendarCmd(opts *options) *cobra.Command {
	calendarCmd := &cobra.Command{Use: "calendar", Short: "Calendar operations"}

	// create
	var recipientName, recipientInterest string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a calendar with 24 empty doors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.connect(cmd)
			if err != nil {
				return err
			}
			cal, err := c.CreateCalendar(cmd.Context(), recipientName, recipientInterest)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), cal)
		},
	}
	createCmd.Flags().StringVarP(&recipientName, "recipient", "r", "", "Recipient name (required)")
	createCmd.Flags().StringVarP(&recipientInterest, "interest", "i", "", "Recipient interest")
	_ = createCmd.MarkFlagRequired("recipient")
	calendarCmd.AddCommand(createCmd)

	// show
	showCmd := &cobra.Command{
		Use:   "show CALENDAR_ID",
		Short: "Show a calendar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.connect(cmd)
			if err != nil {
				return err
			}
			cal, err := c.GetCalendar(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), cal)
		},
	}
	calendarCmd.AddCommand(showCmd)

	// list
	var listOpts client.ListOptions
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List created and received calendars",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.connect(cmd)
			if err != nil {
				return err
			}
			page, err := c.ListCalendars(cmd.Context(), listOpts)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), page)
		},
	}
	listCmd.Flags().StringVar(&listOpts.Scope, "scope", "", "created, received or all")
	listCmd.Flags().StringArrayVarP(&listOpts.ContentQuery, "query", "q", nil, "Content query part, e.g. 'recipientName equals Ada' or 'or' (repeatable)")
	listCmd.Flags().StringVar(&listOpts.SortBy, "sort", "", "created_at or recipient_name")
	listCmd.Flags().StringVar(&listOpts.Order, "order", "", "asc or desc")
	listCmd.Flags().IntVar(&listOpts.Page, "page", 0, "Page number")
	listCmd.Flags().IntVar(&listOpts.Limit, "limit", 0, "Page size")
	calendarCmd.AddCommand(listCmd)

	// share
	shareCmd := &cobra.Command{
		Use:   "share CALENDAR_ID RECIPIENT_UID",
		Short: "Give a calendar to another user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.connect(cmd)
			if err != nil {
				return err
			}
			if err := c.ShareCalendar(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "shared %s with %s\n", args[0], args[1])
			return nil
		},
	}
	calendarCmd.AddCommand(shareCmd)

	// delete
	deleteCmd := &cobra.Command{
		Use:   "delete CALENDAR_ID",
		Short: "Delete a calendar you created",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.connect(cmd)
			if err != nil {
				return err
			}
			if err := c.DeleteCalendar(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
	calendarCmd.AddCommand(deleteCmd)

	return calendarCmd
}
