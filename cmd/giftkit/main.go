// Command giftkit 生成礼物推荐模型的训练数据。
//
//	giftkit schema init
//	giftkit generate --profiles 500 --output training_data.csv
//	giftkit encode --occasion birthday --budget-min 20 --budget-max 60 --interests coffee,books
package main

import (
	"fmt"
	"os"

	_ "github.com/rushteam/giftkit/config/builders"
)

// Version is set via -ldflags at build time.
var Version = "dev"

func main() {
	app := newCLIApp(os.Stdout)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
