package restyutil

import (
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

type InstrumentOutput interface {
	Write(id string, contents string)
}

// InstrumentClient writes every HTTP exchange of `client` to `output`,
// prefixed with `name`. `output` can be nil, in which case this is a no-op.
func InstrumentClient(client *resty.Client, name string, output InstrumentOutput) {
	if output == nil {
		return
	}

	var idcounter uint64
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		id := atomic.AddUint64(&idcounter, 1)
		output.Write(
			fmt.Sprintf("%s-%s.txt", name, strconv.FormatUint(id, 10)),
			formatHttpMessage(res),
		)
		return nil
	})
}
