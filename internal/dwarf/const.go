package dwarf

// Tags this engine reacts to.
const (
	TagCompileUnit  = 0x11
	TagPartialUnit  = 0x3c
	TagSubprogram   = 0x2e
	TagSkeletonUnit = 0x4a
)

// Attributes this engine reads.
const (
	AttrName     = 0x03
	AttrCompDir  = 0x1b
	AttrProducer = 0x25
)

// Attribute forms, DWARF v2 through v5.
const (
	formAddr          = 0x01
	formBlock2        = 0x03
	formBlock4        = 0x04
	formData2         = 0x05
	formData4         = 0x06
	formData8         = 0x07
	formString        = 0x08
	formBlock         = 0x09
	formBlock1        = 0x0a
	formData1         = 0x0b
	formFlag          = 0x0c
	formSdata         = 0x0d
	formStrp          = 0x0e
	formUdata         = 0x0f
	formRefAddr       = 0x10
	formRef1          = 0x11
	formRef2          = 0x12
	formRef4          = 0x13
	formRef8          = 0x14
	formRefUdata      = 0x15
	formIndirect      = 0x16
	formSecOffset     = 0x17
	formExprloc       = 0x18
	formFlagPresent   = 0x19
	formStrx          = 0x1a
	formAddrx         = 0x1b
	formRefSup4       = 0x1c
	formStrpSup       = 0x1d
	formData16        = 0x1e
	formLineStrp      = 0x1f
	formRefSig8       = 0x20
	formImplicitConst = 0x21
	formLoclistx      = 0x22
	formRnglistx      = 0x23
	formRefSup8       = 0x24
	formStrx1         = 0x25
	formStrx2         = 0x26
	formStrx3         = 0x27
	formStrx4         = 0x28
	formAddrx1        = 0x29
	formAddrx2        = 0x2a
	formAddrx3        = 0x2b
	formAddrx4        = 0x2c
)

func formKnown(form uint64) bool {
	switch form {
	case formAddr, formBlock2, formBlock4, formData2, formData4, formData8,
		formString, formBlock, formBlock1, formData1, formFlag, formSdata,
		formStrp, formUdata, formRefAddr, formRef1, formRef2, formRef4,
		formRef8, formRefUdata, formIndirect, formSecOffset, formExprloc,
		formFlagPresent, formStrx, formAddrx, formRefSup4, formStrpSup,
		formData16, formLineStrp, formRefSig8, formImplicitConst,
		formLoclistx, formRnglistx, formRefSup8,
		formStrx1, formStrx2, formStrx3, formStrx4,
		formAddrx1, formAddrx2, formAddrx3, formAddrx4:
		return true
	}
	return false
}
