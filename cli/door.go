package cli

import (
	"adventcal/models"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func parseDayArg(s string) (int, error) {
	day, err := strconv.Atoi(s)
	if err != nil || day < 1 || day > models.DaysInCalendar {
		return 0, fmt.Errorf("day must be a number between 1 and %d, got %q", models.DaysInCalendar, s)
	}
	return day, nil
}

func newDoorCmd(opts *options) *cobra.Command {
	doorCmd := &cobra.Command{Use: "door", Short: "Door operations"}

	// show
	showCmd := &cobra.Command{
		Use:   "show CALENDAR_ID DAY",
		Short: "Show one door",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDayArg(args[1])
			if err != nil {
				return err
			}
			c, err := opts.connect(cmd)
			if err != nil {
				return err
			}
			door, err := c.GetDoor(cmd.Context(), args[0], day)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), door)
		},
	}
	doorCmd.AddCommand(showCmd)

	// set
	var text, imageURL string
	var clearContent bool
	setCmd := &cobra.Command{
		Use:   "set CALENDAR_ID DAY",
		Short: "Fill a door with text or an image, or clear it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDayArg(args[1])
			if err != nil {
				return err
			}

			req := models.UpdateDoorRequest{ContentType: models.ContentEmpty}
			switch {
			case clearContent:
			case cmd.Flags().Changed("text"):
				req.ContentType, req.Text = models.ContentText, &text
			case cmd.Flags().Changed("image"):
				req.ContentType, req.ImageURL = models.ContentImage, &imageURL
			default:
				return fmt.Errorf("one of --text, --image or --clear required")
			}

			c, err := opts.connect(cmd)
			if err != nil {
				return err
			}
			door, err := c.SetDoor(cmd.Context(), args[0], day, req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), door)
		},
	}
	setCmd.Flags().StringVar(&text, "text", "", "Text content")
	setCmd.Flags().StringVar(&imageURL, "image", "", "Image URL")
	setCmd.Flags().BoolVar(&clearContent, "clear", false, "Remove the content")
	setCmd.MarkFlagsMutuallyExclusive("text", "image", "clear")
	doorCmd.AddCommand(setCmd)

	// unlock
	unlockCmd := &cobra.Command{
		Use:   "unlock CALENDAR_ID DAY",
		Short: "Open a door of a calendar you received",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDayArg(args[1])
			if err != nil {
				return err
			}
			c, err := opts.connect(cmd)
			if err != nil {
				return err
			}
			door, err := c.UnlockDoor(cmd.Context(), args[0], day)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), door)
		},
	}
	doorCmd.AddCommand(unlockCmd)

	return doorCmd
}
