package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/technosupport/secops/internal/cameras"
	"github.com/technosupport/secops/internal/integration"
)

var (
	projectFlag string
	cameraFlag  string
	camName     string
	camModel    string
	camLocation string
	camRTSP     string
	camStatus   string
)

var camerasCmd = &cobra.Command{
	Use:   "cameras",
	Short: "Manage cloud cameras",
}

var camerasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cameras of a project",
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, err := parseID("project", projectFlag)
		if err != nil {
			return err
		}
		return withFacade(cmd, func(ctx context.Context, f *integration.Facade) error {
			list := f.LoadCameras(ctx, projectID)
			if jsonOutput {
				return printJSON(list)
			}
			if len(list) == 0 {
				fmt.Println("No cameras.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tMODEL\tSTATUS\tLOCATION")
			fmt.Fprintln(w, "--\t----\t-----\t------\t--------")
			for _, c := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Model, c.Status, c.Location)
			}
			return w.Flush()
		})
	},
}

var camerasAddCmd = &cobra.Command{
	Use:     "add",
	Short:   "Add a camera by hand",
	Example: `  hikctl cameras add --tenant <id> --project <id> --name "Gate" --location "North" --rtsp-url rtsp://10.0.0.5/101`,
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, err := parseID("project", projectFlag)
		if err != nil {
			return err
		}
		in := cameras.Input{
			Name:     camName,
			Model:    camModel,
			Location: camLocation,
			RTSPURL:  camRTSP,
			Status:   cameras.Status(camStatus),
		}
		if err := in.Validate(); err != nil {
			return err
		}
		return withFacade(cmd, func(ctx context.Context, f *integration.Facade) error {
			cam := f.AddCamera(ctx, projectID, in)
			if cam == nil {
				return failure(f, "Camera could not be added")
			}
			if jsonOutput {
				return printJSON(cam)
			}
			fmt.Printf("Camera %s added.\n", cam.ID)
			return nil
		})
	},
}

var camerasSetStatusCmd = &cobra.Command{
	Use:   "set-status",
	Short: "Change a camera's status",
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, err := parseID("project", projectFlag)
		if err != nil {
			return err
		}
		cameraID, err := parseID("camera", cameraFlag)
		if err != nil {
			return err
		}
		status, err := cameras.ParseStatus(camStatus)
		if err != nil {
			return err
		}
		return withFacade(cmd, func(ctx context.Context, f *integration.Facade) error {
			if !f.UpdateCameraStatus(ctx, projectID, cameraID, status) {
				return failure(f, "Camera status could not be updated")
			}
			fmt.Printf("Camera %s is now %s.\n", cameraID, status)
			return nil
		})
	},
}

var camerasUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update camera settings; only the flags given are changed",
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, err := parseID("project", projectFlag)
		if err != nil {
			return err
		}
		cameraID, err := parseID("camera", cameraFlag)
		if err != nil {
			return err
		}

		var p cameras.Patch
		flags := cmd.Flags()
		if flags.Changed("name") {
			p.Name = &camName
		}
		if flags.Changed("model") {
			p.Model = &camModel
		}
		if flags.Changed("location") {
			p.Location = &camLocation
		}
		if flags.Changed("rtsp-url") {
			p.RTSPURL = &camRTSP
		}
		if flags.Changed("status") {
			st, err := cameras.ParseStatus(camStatus)
			if err != nil {
				return err
			}
			p.Status = &st
		}
		if err := p.Validate(); err != nil {
			return err
		}

		return withFacade(cmd, func(ctx context.Context, f *integration.Facade) error {
			if !f.UpdateCameraSettings(ctx, projectID, cameraID, p) {
				return failure(f, "Camera settings could not be updated")
			}
			fmt.Printf("Camera %s updated.\n", cameraID)
			return nil
		})
	},
}

var camerasDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a camera",
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, err := parseID("project", projectFlag)
		if err != nil {
			return err
		}
		cameraID, err := parseID("camera", cameraFlag)
		if err != nil {
			return err
		}
		return withFacade(cmd, func(ctx context.Context, f *integration.Facade) error {
			if !f.DeleteCamera(ctx, projectID, cameraID) {
				return failure(f, "Camera could not be deleted")
			}
			fmt.Printf("Camera %s deleted.\n", cameraID)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(camerasCmd)
	camerasCmd.AddCommand(camerasListCmd, camerasAddCmd, camerasSetStatusCmd, camerasUpdateCmd, camerasDeleteCmd)

	for _, c := range []*cobra.Command{camerasListCmd, camerasAddCmd, camerasSetStatusCmd, camerasUpdateCmd, camerasDeleteCmd} {
		c.Flags().StringVar(&projectFlag, "project", "", "Project id")
		_ = c.MarkFlagRequired("project")
	}
	for _, c := range []*cobra.Command{camerasSetStatusCmd, camerasUpdateCmd, camerasDeleteCmd} {
		c.Flags().StringVar(&cameraFlag, "camera", "", "Camera id")
		_ = c.MarkFlagRequired("camera")
	}
	for _, c := range []*cobra.Command{camerasAddCmd, camerasUpdateCmd} {
		c.Flags().StringVar(&camName, "name", "", "Camera name")
		c.Flags().StringVar(&camModel, "model", "", "Camera model")
		c.Flags().StringVar(&camLocation, "location", "", "Location label")
		c.Flags().StringVar(&camRTSP, "rtsp-url", "", "RTSP stream URL")
	}
	camerasAddCmd.Flags().StringVar(&camStatus, "status", "", "Initial status (online, offline, error, maintenance)")
	camerasUpdateCmd.Flags().StringVar(&camStatus, "status", "", "New status")
	camerasSetStatusCmd.Flags().StringVar(&camStatus, "status", "", "New status (online, offline, error, maintenance)")
	_ = camerasSetStatusCmd.MarkFlagRequired("status")
}
