// Package scenario は3段階のデモを順に実行するエンジンを提供する。
//
// ステージ構成:
//
//   - greeters: 固定数のゴルーチンが並行してログを出す
//   - producer-consumer: 有界バッファを1生産者/1消費者で動かす
//   - clients: ワーカープール上の模擬クライアントが共有バッファへ
//     発行し、専用ディスパッチャーが排出する
//
// ステージ間には固定の待機時間が入る。clientsステージの終了は
// 必ず時間制限付きで、期限を超えた場合は残りを強制放棄して
// レポートにFORCEDと記録する。
//
// # 使用例
//
//	config := scenario.FullScenario()
//	engine := scenario.New(config)
//	result, err := engine.Run(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Report())
package scenario
