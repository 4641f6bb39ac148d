package vulkan

/**
 * @brief Max number of render items per frame resource slot
 * @todo TODO: make configurable
 */
const MAX_OBJECT_COUNT uint32 = 1024

/**
 * @brief Max number of material instances
 * @todo TODO: make configurable
 */
const MAX_MATERIAL_COUNT uint32 = 256

/**
 * @brief Max number of simultaneously bound textures
 * @todo TODO: make configurable
 */
const MAX_TEXTURE_COUNT uint32 = 16
