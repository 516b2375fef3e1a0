package h5table

import (
	"fmt"

	hdf5 "github.com/jmbenlloch/go-hdf5"
)

type EventHDF5 struct {
	evt_number        int64
	x                 float64
	y                 float64
	z                 float64
	r                 float64
	position_valid    int8
	od_fired          int8
	fired             int32
	od_multiplicity   int32
	charge            float64
	charge_norm       float64
	charge_norm_od    float64
	charge_norm_id    float64
	trigger_time      float64
	trigger_time_diff float64
	prompt_energy     float64
	delayed_energy    float64
}

// HitTimingHDF5 flattens the per-hit lists of an event. event is the row of
// the owning event in the events table.
type HitTimingHDF5 struct {
	event             int64
	tof               float64
	rise_time         float64
	rise_time_diff    float64
	rise_time_aligned float64
}

type PairHDF5 struct {
	parent          int64
	daughter        int64
	parent_energy   float64
	daughter_energy float64
	delay           float64
	distance        float64
}

type RunInfoHDF5 struct {
	run_tag             [STRLEN]byte
	date                [STRLEN]byte
	processing_id       [STRLEN]byte
	prompt_calibration  float64
	delayed_calibration float64
	muon_veto           int8
	od_threshold        int32
}

const STRLEN = 40

func convertToHdf5String(s string) [STRLEN]byte {
	var byteArray [STRLEN]byte
	copy(byteArray[:], s)
	return byteArray
}

func convertFromHdf5String(b [STRLEN]byte) string {
	n := 0
	for n < len(b) && b[n] != 0 {
		n++
	}
	return string(b[:n])
}

func openFile(fname string) (*hdf5.File, error) {
	f, err := hdf5.CreateFile(fname, hdf5.F_ACC_TRUNC)
	if err != nil {
		return nil, fmt.Errorf("error creating %s: %w", fname, err)
	}
	return f, nil
}

func createGroup(file *hdf5.File, groupName string) (*hdf5.Group, error) {
	g, err := file.CreateGroup(groupName)
	if err != nil {
		return nil, &ErrCreateGroup{Name: groupName, Err: err}
	}
	return g, nil
}

func createTable(group *hdf5.Group, name string, datatype interface{}, compression int) (*hdf5.Dataset, error) {
	dims := []uint{0}
	unlimitedDims := -1 // H5S_UNLIMITED is -1L
	maxDims := []uint{uint(unlimitedDims)}
	file_space, err := hdf5.CreateSimpleDataspace(dims, maxDims)
	if err != nil {
		return nil, &ErrCreateTable{Name: name, Err: err}
	}
	defer file_space.Close()

	// create property list
	plist, err := hdf5.NewPropList(hdf5.P_DATASET_CREATE)
	if err != nil {
		return nil, &ErrCreateTable{Name: name, Err: err}
	}
	defer plist.Close()

	chunks := []uint{4096}
	if err := plist.SetChunk(chunks); err != nil {
		return nil, &ErrCreateTable{Name: name, Err: err}
	}
	if compression > 0 {
		if err := plist.SetDeflate(compression); err != nil {
			return nil, &ErrCreateTable{Name: name, Err: err}
		}
	}

	// create the memory data type
	dtype, err := hdf5.NewDatatypeFromValue(datatype)
	if err != nil {
		return nil, &ErrCreateTable{Name: name, Err: err}
	}

	dset, err := group.CreateDatasetWith(name, dtype, file_space, plist)
	if err != nil {
		return nil, &ErrCreateTable{Name: name, Err: err}
	}
	return dset, nil
}

// writeArrayToTable appends data after the first rowsInFile rows.
func writeArrayToTable[T any](dataset *hdf5.Dataset, data *[]T, rowsInFile int) error {
	length := uint(len(*data))
	if length == 0 {
		return nil
	}
	dims := []uint{length}
	dataspace, err := hdf5.CreateSimpleDataspace(dims, nil)
	if err != nil {
		return err
	}
	defer dataspace.Close()

	// extend
	rows := uint(rowsInFile)
	newsize := []uint{rows + length}
	if err := dataset.Resize(newsize); err != nil {
		return err
	}
	filespace := dataset.Space()
	defer filespace.Close()

	start := []uint{rows}
	count := []uint{length}
	if err := filespace.SelectHyperslab(start, nil, count, nil); err != nil {
		return err
	}
	return dataset.WriteSubset(data, dataspace, filespace)
}

// readTable loads a whole table. The destination must be allocated before
// calling Read.
func readTable[T any](group *hdf5.Group, name string) ([]T, error) {
	dataset, err := group.OpenDataset(name)
	if err != nil {
		return nil, fmt.Errorf("error opening table %s: %w", name, err)
	}
	defer dataset.Close()

	space := dataset.Space()
	dims, _, err := space.SimpleExtentDims()
	space.Close()
	if err != nil {
		return nil, fmt.Errorf("error reading dimensions of %s: %w", name, err)
	}
	if len(dims) == 0 || dims[0] == 0 {
		return []T{}, nil
	}

	data := make([]T, dims[0])
	if err := dataset.Read(&data); err != nil {
		return nil, fmt.Errorf("error reading table %s: %w", name, err)
	}
	return data, nil
}
