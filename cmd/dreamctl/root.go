package main

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bihua-university/dreamcanvas/internal/studio"
)

const defaultServer = "http://localhost:5001"

type options struct {
	server  string
	timeout time.Duration
}

func (o *options) client() *Client {
	return NewClient(o.server, o.timeout)
}

func newRootCmd() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:           "dreamctl",
		Short:         "梦境画布命令行客户端",
		Long:          `dreamctl 通过 HTTP API 生成图像、获取创意提示并查询生成记录。`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&o.server, "server", defaultServer, "服务器地址")
	root.PersistentFlags().DurationVar(&o.timeout, "timeout", 3*time.Minute, "请求超时")

	root.AddCommand(
		generateCmd(o),
		brainstormCmd(o),
		categoriesCmd(o),
		getCmd(o),
		listCmd(o),
	)
	return root
}

func generateCmd(o *options) *cobra.Command {
	var r studio.GenerateRequest
	cmd := &cobra.Command{
		Use:   "generate <prompt...>",
		Short: "根据提示词生成图像",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r.Prompt = strings.Join(args, " ")
			creation, err := o.client().Generate(cmd.Context(), r)
			if err != nil {
				return err
			}
			renderCreation(cmd.OutOrStdout(), creation)
			return nil
		},
	}
	cmd.Flags().StringVar(&r.AspectRatio, "aspect", "", "宽高比 (1:1, 16:9, 9:16, 4:3, 3:4)")
	cmd.Flags().StringVar(&r.UserID, "user", "", "用户ID")
	cmd.Flags().StringVar(&r.BoardName, "board", "", "画板名称")
	return cmd
}

func brainstormCmd(o *options) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "brainstorm <category>",
		Short: "获取某个类别的创意提示",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ideas, fallback, err := o.client().Brainstorm(cmd.Context(), args[0], count)
			if err != nil {
				return err
			}
			renderIdeas(cmd.OutOrStdout(), args[0], ideas, fallback)
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 0, "提示数量 (1-10，默认由服务器决定)")
	return cmd
}

func categoriesCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "列出所有创意类别",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := o.client().Categories(cmd.Context())
			if err != nil {
				return err
			}
			return renderCategories(cmd.OutOrStdout(), list)
		},
	}
}

func getCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "查看一条生成记录",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			image, err := o.client().Image(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			renderImage(cmd.OutOrStdout(), image)
			return nil
		},
	}
}

func listCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list <userId>",
		Short: "列出用户最近的生成记录",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			images, err := o.client().UserImages(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return renderImages(cmd.OutOrStdout(), images)
		},
	}
}
