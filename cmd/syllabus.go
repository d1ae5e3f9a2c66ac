package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/npatel023/tutorgraph/internal/config"
	"github.com/npatel023/tutorgraph/internal/logging"
	"github.com/npatel023/tutorgraph/internal/store"
	"github.com/npatel023/tutorgraph/internal/syllabus"
)

var syllabusCmd = &cobra.Command{
	Use:   "syllabus",
	Short: "Resolve and inspect syllabi",
}

var syllabusResolveCmd = &cobra.Command{
	Use:   "resolve <topic> <level>",
	Short: "Resolve (and create if missing) the syllabus for a topic and level",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")

		cfg := config.Load()
		log, err := logging.New(cfg.Env)
		if err != nil {
			return fmt.Errorf("init logging: %w", err)
		}
		defer log.Sync()

		s, err := store.Open(cfg.DB)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer s.Close()

		_, syllabi, err := buildCore(cmd.Context(), cfg, s, log)
		if err != nil {
			return err
		}

		syl, err := syllabi.Resolve(cmd.Context(), args[0], args[1], userID)
		if err != nil {
			return fmt.Errorf("resolve syllabus: %w", err)
		}
		printSyllabus(syl)
		return nil
	},
}

func printSyllabus(syl *store.Syllabus) {
	kind := "master"
	if !syl.IsMaster {
		kind = "fork"
	}
	fmt.Printf("UID:    %s\n", syl.UID)
	fmt.Printf("Topic:  %s (%s)\n", syl.Topic, syl.Level)
	fmt.Printf("Kind:   %s\n", kind)
	if syl.ParentUID != nil {
		fmt.Printf("Parent: %s\n", *syl.ParentUID)
	}
	if syl.UserID != nil {
		fmt.Printf("User:   %s\n", *syl.UserID)
	}

	modules, err := syllabus.Outline(syl)
	if err != nil {
		fmt.Printf("(modules undecodable: %v)\n", err)
		return
	}
	fmt.Println()
	for i, m := range modules {
		fmt.Printf("%d. %s\n", i+1, m.Title)
		for _, l := range m.Lessons {
			fmt.Printf("   %s %s\n", strings.Repeat("─", 1), l.Title)
		}
	}
}

func init() {
	syllabusResolveCmd.Flags().StringP("user", "u", "", "Resolve for a specific user (prefers their fork)")
	syllabusCmd.AddCommand(syllabusResolveCmd)
}
