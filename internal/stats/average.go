package stats

import (
	"math"
	"strconv"
)

// Average - результат расчета скользящего среднего: либо NoData, либо значение в секундах.
// NaN появляется только на границе сравнения (сортировка), внутри пакета его нет.
type Average struct {
	value float64
	ok    bool
}

// NoData возвращает "пустое" среднее (в окне не было ни одного запроса)
func NoData() Average {
	return Average{}
}

func ValueOf(v float64) Average {
	return Average{value: v, ok: true}
}

// Value возвращает значение и признак наличия данных
func (a Average) Value() (float64, bool) {
	return a.value, a.ok
}

func (a Average) Valid() bool {
	return a.ok
}

// Float конвертирует среднее в float64 для сравнения: NoData -> NaN
func (a Average) Float() float64 {
	if !a.ok {
		return math.NaN()
	}
	return a.value
}

func (a Average) String() string {
	if !a.ok {
		return "nan"
	}
	return strconv.FormatFloat(a.value, 'f', 6, 64)
}

// Averages - средние за окна 1, 5 и 15 минут.
type Averages struct {
	M1  Average
	M5  Average
	M15 Average
}

// Counter - счетчики запросов ресурса.
type Counter struct {
	Active int64
	Total  int64
}

// Snapshot - согласованный срез состояния ресурса на момент чтения.
type Snapshot struct {
	Counter  Counter
	Averages Averages
}
