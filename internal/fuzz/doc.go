// Package fuzztests houses Go fuzz harnesses for the buffer and the parser.
// They feed arbitrary sizes, contents and call orders (including nil and
// zero-length inputs) and check the invariants in internal/testkit after
// every step, so a run doubles as a coverage ground truth: Parse is the only
// caller of Buffer.Append inside the module.
//
// Назначение: гонять buffer/parser на произвольных байтах без паник и утечек.
//
// Не делает: генерацию корпусов на диск, запуск CLI.
//
// Зависимости: internal/buffer, internal/parser, internal/testkit.
package fuzztests
