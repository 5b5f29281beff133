package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/reviewbot/internal/models"
	"github.com/joescharf/reviewbot/internal/output"
	"github.com/joescharf/reviewbot/internal/store"
	"github.com/joescharf/reviewbot/internal/task"
)

var (
	taskTitle    string
	taskDesc     string
	taskClient   string
	taskAssignee string
	taskDeadline string
	taskPriority string
	taskStatus   string
	taskMine     bool
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Track client tasks",
	Long:  "Add, list and complete client tasks. Priority follows the deadline unless set explicitly.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskListRun()
	},
}

var taskAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a task",
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskAddRun()
	},
}

var taskListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks, open first and then by deadline",
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskListRun()
	},
}

var taskDoneCmd = &cobra.Command{
	Use:   "done <task-id>",
	Short: "Mark a task done",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskDoneRun(args[0])
	},
}

var taskRmCmd = &cobra.Command{
	Use:     "rm <task-id>",
	Aliases: []string{"delete"},
	Short:   "Delete a task",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskRmRun(args[0])
	},
}

func init() {
	taskAddCmd.Flags().StringVar(&taskTitle, "title", "", "Task title (required)")
	taskAddCmd.Flags().StringVar(&taskDesc, "desc", "", "Task description")
	taskAddCmd.Flags().StringVar(&taskClient, "client", "", "Client label")
	taskAddCmd.Flags().StringVar(&taskAssignee, "assignee", "", "Assignee as id or id:Name (default: you)")
	taskAddCmd.Flags().StringVar(&taskDeadline, "deadline", "", "Deadline: YYYY-MM-DD or YYYY-MM-DD HH:MM")
	taskAddCmd.Flags().StringVar(&taskPriority, "priority", "", "Priority: low, medium, high (default: from deadline)")
	_ = taskAddCmd.MarkFlagRequired("title")

	taskListCmd.Flags().StringVar(&taskStatus, "status", "", "Filter by status: open, done")
	taskListCmd.Flags().StringVar(&taskClient, "client", "", "Filter by client")
	taskListCmd.Flags().BoolVar(&taskMine, "mine", false, "Only tasks assigned to you")

	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskDoneCmd)
	taskCmd.AddCommand(taskRmCmd)
	rootCmd.AddCommand(taskCmd)
}

func taskAddRun() error {
	reviews, tasks, err := getServices()
	if err != nil {
		return err
	}
	me, err := currentActor()
	if err != nil {
		return err
	}

	in := task.CreateInput{
		Title:       taskTitle,
		Description: taskDesc,
		Client:      taskClient,
		Creator:     me,
		Priority:    models.TaskPriority(taskPriority),
	}
	if taskAssignee != "" {
		in.Assignee = parseParty(taskAssignee)
	}
	if taskDeadline != "" {
		due, err := reviews.Policy().Parse(taskDeadline)
		if err != nil {
			return err
		}
		in.Deadline = &due
	}

	if dryRun {
		ui.DryRunMsg("Would add task: %s", taskTitle)
		return nil
	}

	ctx, cancel := dbContext()
	defer cancel()
	t, err := tasks.Create(ctx, in)
	if err != nil {
		return err
	}
	ui.Success("Created task %s: %s [%s]", output.Cyan(shortID(t.ID)), t.Title, output.PriorityColor(string(t.Priority)))
	return nil
}

func taskListRun() error {
	_, tasks, err := getServices()
	if err != nil {
		return err
	}

	filter := store.TaskListFilter{
		Client: taskClient,
		Status: models.TaskStatus(taskStatus),
	}
	switch filter.Status {
	case "", models.TaskStatusOpen, models.TaskStatusDone:
	default:
		return fmt.Errorf("invalid status %q (want open or done)", taskStatus)
	}
	if taskMine {
		me, err := currentActor()
		if err != nil {
			return err
		}
		filter.AssigneeID = me.ID
	}

	ctx, cancel := dbContext()
	defer cancel()
	list, err := tasks.List(ctx, filter)
	if err != nil {
		return err
	}

	if len(list) == 0 {
		ui.Info("No tasks found.")
		return nil
	}

	now := time.Now()
	table := ui.Table([]string{"ID", "Title", "Client", "Assignee", "Status", "Priority", "Due"})
	for _, t := range list {
		_ = table.Append([]string{
			t.ID,
			t.Title,
			t.Client,
			displayName(t.Assignee),
			output.StatusColor(string(t.Status)),
			output.PriorityColor(string(t.Priority)),
			output.Due(t.Deadline, now),
		})
	}
	_ = table.Render()
	return nil
}

func taskDoneRun(id string) error {
	_, tasks, err := getServices()
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would mark task %s done", id)
		return nil
	}

	ctx, cancel := dbContext()
	defer cancel()
	t, err := tasks.Complete(ctx, id)
	if err != nil {
		return err
	}
	ui.Success("Task %s done: %s", output.Cyan(shortID(t.ID)), t.Title)
	return nil
}

func taskRmRun(id string) error {
	_, tasks, err := getServices()
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would delete task %s", id)
		return nil
	}

	ctx, cancel := dbContext()
	defer cancel()
	if err := tasks.Delete(ctx, id); err != nil {
		return err
	}
	ui.Success("Deleted task %s", id)
	return nil
}
