// carmart は中古車マーケットプレイスのHTTPサーバー。
//
// 使い方:
//
//	carmart [serve]        HTTPサーバーを起動する
//	carmart migrate [down] マイグレーションを適用する（downで1つ巻き戻す）
//	carmart healthcheck    /healthを確認する（Dockerヘルスチェック用）
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/carmart/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "carmart: %v\n", err)
		os.Exit(1)
	}
}
