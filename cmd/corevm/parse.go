package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mattstark/corevm/pkg/classfile"
)

var parseCmd = &cobra.Command{
	Use:   "parse <class-file>",
	Short: "Decode a .class file and print its skeleton.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		log.WithField("path", path).Debug("parsing class file")

		cf, err := classfile.ParseFile(path)
		if err != nil {
			return err
		}

		fmt.Printf("class %s extends %s (major %d)\n", cf.ThisClass, superOrObject(cf.SuperClass), cf.MajorVersion)
		if len(cf.Interfaces) > 0 {
			fmt.Printf("  implements %v\n", cf.Interfaces)
		}
		fmt.Printf("  %s fields, %s methods, %s constant-pool entries\n",
			humanize.Comma(int64(len(cf.Fields))),
			humanize.Comma(int64(len(cf.Methods))),
			humanize.Comma(int64(len(cf.RawPool))))
		for _, f := range cf.Fields {
			fmt.Printf("  field  %-20s %s\n", f.Name, f.Descriptor)
		}
		for _, m := range cf.Methods {
			code := "abstract/native"
			if m.Code != nil {
				code = fmt.Sprintf("%d bytes", len(m.Code.Code))
			}
			fmt.Printf("  method %-20s %-20s %s\n", m.Name, m.Descriptor, code)
		}
		return nil
	},
}

func superOrObject(super string) string {
	if super == "" {
		return "java/lang/Object"
	}
	return super
}
