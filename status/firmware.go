package status

// FirmwareCode is the raw numeric return code produced by the firmware shim
// (vpu/firmware.Driver). Its values and names mirror the vpulib/CODA960
// RETCODE_* constants so the mapping table below can be checked directly
// against the firmware documentation.
type FirmwareCode int

const (
	FwSuccess                   FirmwareCode = 0
	FwFailure                   FirmwareCode = 1
	FwInvalidHandle             FirmwareCode = 2
	FwInvalidParam              FirmwareCode = 3
	FwInvalidCommand            FirmwareCode = 4
	FwRotatorOutputNotSet       FirmwareCode = 5
	FwRotatorStrideNotSet       FirmwareCode = 6
	FwFrameNotComplete          FirmwareCode = 7
	FwInvalidFrameBuffer        FirmwareCode = 8
	FwInsufficientFrameBuffers  FirmwareCode = 9
	FwInvalidStride             FirmwareCode = 10
	FwWrongCallSequence         FirmwareCode = 11
	FwCalledBefore              FirmwareCode = 12
	FwNotInitialized            FirmwareCode = 13
	FwDeblockingOutputNotSet    FirmwareCode = 14
	FwNotSupported              FirmwareCode = 15
	FwReportBufNotSet           FirmwareCode = 16
	FwFailureTimeout            FirmwareCode = 17
	FwMemoryAccessViolation     FirmwareCode = 18
	FwJPEGEOS                   FirmwareCode = 19
	FwJPEGBitEmpty              FirmwareCode = 20
)

// FromFirmware maps a raw firmware return code to a library-level Code.
// RETCODE_JPEG_EOS maps to OK: reaching the end of a JPEG bitstream is not
// an error, it is reported instead as the EOS output code (see vpu/decoder).
func FromFirmware(fw FirmwareCode) Code {
	switch fw {
	case FwSuccess, FwJPEGEOS:
		return OK
	case FwInvalidHandle:
		return InvalidHandle
	case FwInvalidParam, FwInvalidCommand:
		return InvalidParams
	case FwInvalidFrameBuffer, FwRotatorOutputNotSet, FwRotatorStrideNotSet, FwDeblockingOutputNotSet, FwReportBufNotSet:
		return InvalidFramebuffer
	case FwInsufficientFrameBuffers:
		return InsufficientFramebuffers
	case FwInvalidStride:
		return InvalidStride
	case FwWrongCallSequence, FwNotInitialized:
		return InvalidCall
	case FwCalledBefore:
		return AlreadyCalled
	case FwFailureTimeout:
		return Timeout
	case FwMemoryAccessViolation:
		return DmaMemoryAccessError
	case FwNotSupported:
		return UnsupportedCompressionFormat
	case FwFrameNotComplete, FwFailure, FwJPEGBitEmpty:
		return Error
	default:
		return Error
	}
}
