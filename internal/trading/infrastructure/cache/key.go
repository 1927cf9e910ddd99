// Package cache 实现查询缓存的键派生、TTL 策略与容错读写适配
package cache

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Namespace 缓存键命名空间，隔离本应用与共用同一 Redis 的其他数据
const Namespace = "Spimex cache"

// Key 根据端点标识与参数集合派生缓存键。
// 参数以键名字典序序列化为 JSON，因此键值对集合相同的两个请求无论参数
// 顺序如何都得到相同的键；nil 参数序列化为 JSON null，非 ASCII 文本原样
// 保留以便人工排查。
func Key(endpoint string, params map[string]any) string {
	payload, err := json.Marshal(params)
	if err != nil {
		// map[string]any 携带标量时 Marshal 不会失败；兜底形式同样保持确定性
		payload = []byte(rawForm(params))
	}
	return fmt.Sprintf("%s:%s:%s", Namespace, endpoint, payload)
}

// rawForm 按键名排序拼接参数的降级表示
func rawForm(params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%q:%v", k, params[k])
	}
	b.WriteByte('}')
	return b.String()
}
